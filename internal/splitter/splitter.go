// Package splitter はSQLスクリプトをステートメント単位に分割する。
package splitter

import (
	"fmt"
	"strings"

	"dml-runner/internal/domain"
)

// Splitter はスクリプト本文をステートメントに分割する。
type Splitter interface {
	Split(body string) []string
}

// Semicolon は ';' で単純に分割するスプリッタ。
// 文字列リテラルやコメント内の ';' も区切りとして扱う。既存スクリプトとの互換のため既定値とする。
type Semicolon struct{}

// Split はスクリプト本文を分割し、空白のみの断片を除いて返す。
func (Semicolon) Split(body string) []string {
	var statements []string
	for _, fragment := range strings.Split(body, ";") {
		if stmt := strings.TrimSpace(fragment); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

// Tokenizing はクォートとコメントを解釈するスプリッタ。
// '...' "..." `...` の内部、-- と # の行コメント、/* */ のブロックコメント内の ';' では分割しない。
type Tokenizing struct{}

// Split はスクリプト本文を分割し、空白のみ（コメントのみを含む）の断片を除いて返す。
func (Tokenizing) Split(body string) []string {
	var (
		statements []string
		current    strings.Builder
		hasCode    bool // コメント・空白以外を含むか
	)

	flush := func() {
		if hasCode {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
		}
		current.Reset()
		hasCode = false
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(body, i, c)
			current.WriteString(body[i:end])
			hasCode = true
			i = end - 1
		case c == '-' && i+1 < len(body) && body[i+1] == '-', c == '#':
			end := strings.IndexByte(body[i:], '\n')
			if end < 0 {
				end = len(body)
			} else {
				end += i
			}
			current.WriteString(body[i:end])
			i = end - 1
		case c == '/' && i+1 < len(body) && body[i+1] == '*':
			end := strings.Index(body[i+2:], "*/")
			if end < 0 {
				end = len(body)
			} else {
				end += i + 4
			}
			current.WriteString(body[i:end])
			i = end - 1
		case c == ';':
			flush()
		default:
			current.WriteByte(c)
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				hasCode = true
			}
		}
	}
	flush()

	return statements
}

// skipQuoted はクォート開始位置 start から閉じクォートの直後の位置を返す。
// バックスラッシュエスケープと二重クォートによるエスケープを扱う。
func skipQuoted(body string, start int, quote byte) int {
	for i := start + 1; i < len(body); i++ {
		switch body[i] {
		case '\\':
			if quote != '`' {
				i++
			}
		case quote:
			if i+1 < len(body) && body[i+1] == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(body)
}

// ByName は名前からスプリッタを選択する。
func ByName(name string) (Splitter, error) {
	switch strings.ToLower(name) {
	case "", "semicolon":
		return Semicolon{}, nil
	case "tokenizing":
		return Tokenizing{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown splitter %q (expected semicolon or tokenizing)", domain.ErrConfig, name)
	}
}
