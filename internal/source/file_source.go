// Package source はマイグレーションスクリプトの列挙と読み込みを提供する。
package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"dml-runner/internal/domain"
)

// FileSource はファイルシステム上のディレクトリをスクリプトの供給元とする。
type FileSource struct {
	fsys fs.FS
	dir  string // ログ出力用
}

// NewFileSource はディレクトリを供給元とするFileSourceを生成する。
func NewFileSource(dir string) *FileSource {
	return &FileSource{fsys: os.DirFS(dir), dir: dir}
}

// NewFSSource は任意の fs.FS のルートを供給元とするFileSourceを生成する。
func NewFSSource(fsys fs.FS, label string) *FileSource {
	return &FileSource{fsys: fsys, dir: label}
}

// ListScripts はスクリプトをファイル名のバイト順で返す。本文は読み込まない。
func (s *FileSource) ListScripts(ctx context.Context) ([]*domain.MigrationScript, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		slog.ErrorContext(ctx, "failed to read source directory",
			"operation", "list_scripts",
			"dir", s.dir,
			"error", err,
		)
		return nil, fmt.Errorf("%w: directory %s: %v", domain.ErrSourceRead, s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	// ロケールに依存しないバイト順
	sort.Strings(names)

	scripts := make([]*domain.MigrationScript, len(names))
	for i, name := range names {
		scripts[i] = &domain.MigrationScript{
			Name:    name,
			Ordinal: i,
			Path:    name,
		}
	}
	return scripts, nil
}

// ReadScript はスクリプト本文を一度に読み込み、script.Body に設定する。
func (s *FileSource) ReadScript(ctx context.Context, script *domain.MigrationScript) error {
	data, err := fs.ReadFile(s.fsys, script.Path)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read script",
			"operation", "read_script",
			"dir", s.dir,
			"script", script.Name,
			"error", err,
		)
		return fmt.Errorf("%w: file %s: %v", domain.ErrSourceRead, script.Name, err)
	}
	script.Body = string(data)
	return nil
}
