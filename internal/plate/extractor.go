// Package plate extracts Mercosul vehicle plates (LLLNLNN) from OCR text.
//
// The extraction is pure and safe for concurrent use: the pattern and the
// correction tables are package-level values that are never written.
package plate

import (
	"iter"
	"strings"
)

const (
	MessageFound    = "Plate identified successfully"
	MessageNotFound = "No plate could be automatically identified."
)

// Result is the outcome of one extraction. Plate is empty when Found is false.
type Result struct {
	Plate   string `json:"plate"`
	Found   bool   `json:"found"`
	Message string `json:"message"`
}

func found(p string) Result {
	return Result{Plate: p, Found: true, Message: MessageFound}
}

func absent() Result {
	return Result{Message: MessageNotFound}
}

// Token is one whitespace-delimited word of the OCR text.
type Token struct {
	Original string // as read by OCR
	Text     string // upper-cased
}

// Tokenize splits text on whitespace runs (newlines included) and upper-cases
// each word. Order follows the text.
func Tokenize(text string) []Token {
	fields := strings.Fields(text)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, Token{Original: f, Text: strings.ToUpper(f)})
	}
	return tokens
}

// CandidateFrom drops everything outside [A-Z0-9] from word and returns the
// last Length characters of what is left. Words that are too short after
// cleaning yield no candidate.
func CandidateFrom(word string) (string, bool) {
	var b strings.Builder
	b.Grow(len(word))
	for i := 0; i < len(word); i++ {
		if c := word[i]; isLetter(c) || isDigit(c) {
			b.WriteByte(c)
		}
	}
	cleaned := b.String()
	if len(cleaned) < Length {
		return "", false
	}
	return cleaned[len(cleaned)-Length:], true
}

// Candidate is a 7-character string derived from a token.
type Candidate struct {
	Token Token
	Value string
}

// Candidates yields the candidate of every token that has one, in text order.
func Candidates(text string) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, tok := range Tokenize(text) {
			v, ok := CandidateFrom(tok.Text)
			if !ok {
				continue
			}
			if !yield(Candidate{Token: tok, Value: v}) {
				return
			}
		}
	}
}

// Outcome tells how a candidate was judged.
type Outcome int

const (
	Rejected Outcome = iota
	DirectMatch
	CorrectedMatch
)

func (o Outcome) String() string {
	switch o {
	case DirectMatch:
		return "direct"
	case CorrectedMatch:
		return "corrected"
	default:
		return "rejected"
	}
}

// Trace describes one evaluated candidate. Corrected is empty for direct
// matches since no correction was attempted.
type Trace struct {
	Token     Token
	Candidate string
	Corrected string
	Outcome   Outcome
}

// Extractor runs the extraction, optionally reporting every candidate it
// evaluates. The zero value is ready to use.
type Extractor struct {
	Trace func(Trace)
	// Miss is called once when no candidate matched.
	Miss func()
}

// Extract returns the first plate found in text, scanning tokens in order.
// A candidate is tried as-is first and then once after Correct.
func (e Extractor) Extract(text string) Result {
	for c := range Candidates(text) {
		if Matches(c.Value) {
			e.trace(Trace{Token: c.Token, Candidate: c.Value, Outcome: DirectMatch})
			return found(c.Value)
		}

		corrected := Correct(c.Value)
		if Matches(corrected) {
			e.trace(Trace{Token: c.Token, Candidate: c.Value, Corrected: corrected, Outcome: CorrectedMatch})
			return found(corrected)
		}
		e.trace(Trace{Token: c.Token, Candidate: c.Value, Corrected: corrected, Outcome: Rejected})
	}
	if e.Miss != nil {
		e.Miss()
	}
	return absent()
}

func (e Extractor) trace(t Trace) {
	if e.Trace != nil {
		e.Trace(t)
	}
}

// Extract runs an Extractor without tracing.
func Extract(text string) Result {
	return Extractor{}.Extract(text)
}
