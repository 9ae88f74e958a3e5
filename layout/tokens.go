package layout

import (
	"strings"

	"github.com/ByLCY/certify/binding"
)

// BuildTokens 按片段顺序组装 Token 序列。
// 强调片段替换为 data 中对应字段的实时值；字段为空时整段省略，周围的普通文本照常保留。
// 普通片段支持 ${path} 插值。每个片段按空白拆词，空词丢弃。
func BuildTokens(fragments []Fragment, data any) []Token {
	var tokens []Token
	for _, frag := range fragments {
		text := frag.Text
		if frag.Emphasized() {
			value, ok := binding.Text(data, frag.Field)
			if !ok {
				continue
			}
			text = value
		} else {
			text = binding.Interpolate(text, data)
		}
		for _, word := range strings.Fields(text) {
			tokens = append(tokens, Token{Text: word, Emphasized: frag.Emphasized()})
		}
	}
	return tokens
}

// Sentence 将 Token 按顺序以单个空格连接，用于校验与调试。
func Sentence(tokens []Token) string {
	words := make([]string, len(tokens))
	for i, tok := range tokens {
		words[i] = tok.Text
	}
	return strings.Join(words, " ")
}
