package fluxion

type Token int

const (
	EOF Token = iota
	IDENT
	KEYWORD
	STRING
	NUMBER
	BOOL
	NULL
	ASSIGN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	LPAREN
	RPAREN
	COMMA
	COLON
	DOT
	OPERATOR
)

var tokenNames = map[Token]string{
	EOF:      "end of input",
	IDENT:    "identifier",
	KEYWORD:  "keyword",
	STRING:   "string",
	NUMBER:   "number",
	BOOL:     "boolean",
	NULL:     "null",
	ASSIGN:   "'='",
	LBRACE:   "'{'",
	RBRACE:   "'}'",
	LBRACKET: "'['",
	RBRACKET: "']'",
	LPAREN:   "'('",
	RPAREN:   "')'",
	COMMA:    "','",
	COLON:    "':'",
	DOT:      "'.'",
	OPERATOR: "operator",
}

func (t Token) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown token"
}

type tokenInfo struct {
	typ   Token
	value string
	line  int
	col   int
	// nlBefore marks a token preceded by at least one newline. Statement
	// boundaries and the bare-command form consult it; collection literals
	// ignore it so lists and maps can span multiple lines.
	nlBefore bool
	isFloat  bool
}

var keywords = map[string]bool{
	"let":    true,
	"return": true,
	"if":     true,
	"else":   true,
	"for":    true,
	"in":     true,
	"func":   true,
	"fn":     true,
}

var operatorPrecedence = map[string]int{
	"??": 1,
	"||": 2,
	"&&": 3,
	"==": 4,
	"!=": 4,
	"<":  5,
	"<=": 5,
	">":  5,
	">=": 5,
	"+":  6,
	"-":  6,
	"*":  7,
	"/":  7,
	"%":  7,
	".":  8,
}

func getPrecedence(op string) int {
	if prec, ok := operatorPrecedence[op]; ok {
		return prec
	}
	return 0
}
