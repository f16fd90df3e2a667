package splitter

import (
	"errors"
	"reflect"
	"testing"

	"dml-runner/internal/domain"
)

func TestSemicolon_Split(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "空白のみの断片を除外",
			body: "INSERT INTO t VALUES (1);\n\nUPDATE t SET x=2; ",
			want: []string{"INSERT INTO t VALUES (1)", "UPDATE t SET x=2"},
		},
		{
			name: "区切りなし",
			body: "SELECT 1",
			want: []string{"SELECT 1"},
		},
		{
			name: "空のスクリプト",
			body: " \n\t ;;\n",
			want: nil,
		},
		{
			name: "文字列内のセミコロンも分割する",
			body: "INSERT INTO t VALUES ('a;b');",
			want: []string{"INSERT INTO t VALUES ('a", "b')"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Semicolon{}.Split(tt.body)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestTokenizing_Split(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "単純な分割",
			body: "INSERT INTO t VALUES (1);\n\nUPDATE t SET x=2; ",
			want: []string{"INSERT INTO t VALUES (1)", "UPDATE t SET x=2"},
		},
		{
			name: "クォート内のセミコロン",
			body: "INSERT INTO t VALUES ('a;b', \"c;d\");SELECT `x;y` FROM t",
			want: []string{"INSERT INTO t VALUES ('a;b', \"c;d\")", "SELECT `x;y` FROM t"},
		},
		{
			name: "エスケープされたクォート",
			body: `INSERT INTO t VALUES ('it\'s;', 'a'';b');SELECT 1`,
			want: []string{`INSERT INTO t VALUES ('it\'s;', 'a'';b')`, "SELECT 1"},
		},
		{
			name: "行コメント",
			body: "-- setup; ignored\nCREATE TABLE t (id INT);\n# trailing; comment\n",
			want: []string{"-- setup; ignored\nCREATE TABLE t (id INT)"},
		},
		{
			name: "ブロックコメント",
			body: "/* a; b */ SELECT 1; /* only comment; */",
			want: []string{"/* a; b */ SELECT 1"},
		},
		{
			name: "閉じられていないクォート",
			body: "SELECT 'abc;",
			want: []string{"SELECT 'abc;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenizing{}.Split(tt.body)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestByName(t *testing.T) {
	if s, err := ByName(""); err != nil || s != (Semicolon{}) {
		t.Errorf("expected Semicolon for empty name, got %v, %v", s, err)
	}
	if s, err := ByName("Tokenizing"); err != nil || s != (Tokenizing{}) {
		t.Errorf("expected Tokenizing, got %v, %v", s, err)
	}
	if _, err := ByName("regex"); !errors.Is(err, domain.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}
