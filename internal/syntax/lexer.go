package syntax

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies lexer tokens.
type TokenKind uint8

const (
	TokWord TokenKind = iota
	TokNumber
	TokString
	TokOpenBracket
	TokCloseBracket
	TokOpenParen
	TokCloseParen
	TokEOF
)

// Token is one lexeme. Word text is lower-cased.
type Token struct {
	Kind TokenKind
	From int
	To   int
	Text string
}

var numberPattern = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

func isDelimiter(r rune) bool {
	switch r {
	case '[', ']', '(', ')', ';', '"', '{', '}', ',':
		return true
	}
	return unicode.IsSpace(r)
}

// WordAt returns the bounds of the word touching pos. Both are pos when pos
// lies between delimiters.
func WordAt(src string, pos int) (int, int) {
	pos = max(0, min(pos, len(src)))
	from := pos
	for from > 0 {
		r, n := utf8.DecodeLastRuneInString(src[:from])
		if isDelimiter(r) {
			break
		}
		from -= n
	}
	to := pos
	for to < len(src) {
		r, n := utf8.DecodeRuneInString(src[to:])
		if isDelimiter(r) {
			break
		}
		to += n
	}
	return from, to
}

// Lex splits src into tokens, dropping whitespace and ";" comments. The last
// token is always TokEOF.
func Lex(src string) []Token {
	var toks []Token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == ';':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case r == '[':
			toks = append(toks, Token{Kind: TokOpenBracket, From: i, To: i + 1, Text: "["})
			i++
		case r == ']':
			toks = append(toks, Token{Kind: TokCloseBracket, From: i, To: i + 1, Text: "]"})
			i++
		case r == '(':
			toks = append(toks, Token{Kind: TokOpenParen, From: i, To: i + 1, Text: "("})
			i++
		case r == ')':
			toks = append(toks, Token{Kind: TokCloseParen, From: i, To: i + 1, Text: ")"})
			i++
		case r == '"':
			start := i
			i++
			for i < len(src) && src[i] != '"' && src[i] != '\n' {
				if src[i] == '\\' && i+1 < len(src) {
					i++
				}
				i++
			}
			if i < len(src) && src[i] == '"' {
				i++
			}
			toks = append(toks, Token{Kind: TokString, From: start, To: i, Text: src[start:i]})
		case r == '{' || r == '}' || r == ',':
			toks = append(toks, Token{Kind: TokWord, From: i, To: i + size, Text: string(r)})
			i += size
		default:
			start := i
			for i < len(src) {
				r, size := utf8.DecodeRuneInString(src[i:])
				if isDelimiter(r) {
					break
				}
				i += size
			}
			text := strings.ToLower(src[start:i])
			kind := TokWord
			if numberPattern.MatchString(text) {
				kind = TokNumber
			}
			toks = append(toks, Token{Kind: kind, From: start, To: i, Text: text})
		}
	}
	return append(toks, Token{Kind: TokEOF, From: len(src), To: len(src)})
}
