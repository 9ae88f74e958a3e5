package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	// 颜色规则必须排在 # 注释之前，否则 #RRGGBB 会被当作注释吞掉
	templateLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Space", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "Comment", Pattern: `//[^\n]*|/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:px|%|x)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"\n])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.-]*`},
		{Name: "Punct", Pattern: `[{}:;]`},
	})

	fileParser = participle.MustBuild[File](
		participle.Lexer(templateLexer),
		participle.Elide("Space", "Comment", "HashComment"),
	)
)

// File 是模板配置文件的根节点，可以声明多个证书模板。
type File struct {
	Templates []*Template `parser:"Newline* ( @@ Newline* )*"`
}

// Template 描述一个证书模板：`template <kind> { ... }`。
type Template struct {
	Pos        lexer.Position `parser:"" json:"-"`
	Kind       string         `parser:"'template' @Ident"`
	Statements []*Statement   `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement 是模板块内的一条语句：短语块或属性。
type Statement struct {
	Text     *TextBlock `parser:"  @@"`
	Property *Property  `parser:"| @@"`
}

// TextBlock 按顺序列出短语片段：字符串为普通文本，`bold <field>` 为强调的动态字段。
type TextBlock struct {
	Pos       lexer.Position `parser:"" json:"-"`
	Fragments []*Fragment    `parser:"'text' '{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Fragment 为普通文本或强调字段二选一。
type Fragment struct {
	Plain *StringLiteral `parser:"  @String"`
	Field *string        `parser:"| 'bold' @Ident"`
}

// Property 使用冒号语法：`key: value value ...`。
type Property struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Key    string         `parser:"@Ident ':'"`
	Values []*Value       `parser:"@@+"`
}

// Value 表示属性值。
type Value struct {
	Str   *StringLiteral `parser:"  @String"`
	Num   *string        `parser:"| @Number"`
	Hex   *string        `parser:"| @Color"`
	Ident *string        `parser:"| @Ident"`
}

// Raw 返回属性值的原始文本（字符串已去引号）。
func (v *Value) Raw() string {
	switch {
	case v == nil:
		return ""
	case v.Str != nil:
		return string(*v.Str)
	case v.Num != nil:
		return *v.Num
	case v.Hex != nil:
		return *v.Hex
	case v.Ident != nil:
		return *v.Ident
	default:
		return ""
	}
}

// StringLiteral 在捕获时按 Go 字符串规则去掉引号并处理转义。
type StringLiteral string

func (s *StringLiteral) Capture(values []string) error {
	if len(values) != 1 {
		return fmt.Errorf("字符串字面量应恰好捕获一个值，实际 %d 个", len(values))
	}
	unquoted, err := strconv.Unquote(values[0])
	if err != nil {
		return fmt.Errorf("字符串 %s 无效: %w", values[0], err)
	}
	*s = StringLiteral(unquoted)
	return nil
}

// Parse parses template definitions from an io.Reader.
func Parse(r io.Reader) (*File, error) {
	return fileParser.Parse("", r)
}

// ParseString parses template definitions from a string.
func ParseString(input string) (*File, error) {
	return fileParser.ParseString("", input)
}
