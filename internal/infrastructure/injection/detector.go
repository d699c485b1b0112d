// Package injection scans raw input for prompt-injection signatures. All
// patterns are compiled once at construction and shared by every request.
//
// The signature list is a heuristic deterrent, not a security guarantee:
// matches only dampen confidence downstream, they never block a request.
package injection

import (
	"regexp"
)

// Signature is a compiled injection pattern with a stable identifier used in
// logs and reasons.
type Signature struct {
	Name  string
	regex *regexp.Regexp
}

type Detector struct {
	signatures []Signature
}

func NewDetector() *Detector {
	d := &Detector{}

	// Instruction-override phrases.
	d.register("override_instructions_en", `ignore (all |any )?(previous|prior|above|earlier) (instructions|prompts|rules|directives)`)
	d.register("override_instructions_pt", `(ignore|desconsidere|esqueca) (as |todas as )?(instrucoes|regras|orientacoes) (anteriores|acima|previas)`)
	d.register("disregard_instructions", `disregard (the |your |all )?(previous |prior |system )?(instructions|prompt|rules)`)
	d.register("new_instructions", `(your new|these are your( new)?) (instructions|rules) (are|:)`)

	// Requests to reveal system instructions.
	d.register("reveal_system_prompt", `(reveal|show|print|repeat|output|display)( me)?( your| the)? ?(hidden |initial |original )?(system )?(prompt|instructions)`)
	d.register("reveal_system_prompt_pt", `(revele|mostre|exiba|repita) (o |as |seu |suas )?(prompt|instrucoes) (do sistema|de sistema|ocultas?|iniciais)`)

	// Role-reassignment phrases.
	d.register("role_reassignment", `you are (now|no longer) (a|an|the) `)
	d.register("act_as", `(act|behave|respond) as (if you were|though you are) `)
	d.register("pretend", `pretend (to be|you are) `)
	d.register("role_reassignment_pt", `(aja|atue|finja) (como se fosse|que voce e) `)
	d.register("jailbreak_persona", `\b(jailbreak|dan mode|developer mode)\b`)

	// Command-execution markers.
	d.register("shell_command", `\b(rm -rf|chmod \+x|curl .* \| (sh|bash)|wget .* \| (sh|bash))\b`)
	d.register("code_execution", `\b(os\.system|subprocess\.|eval\(|exec\()`)
	d.register("chat_markup", `<\|im_(start|end)\|>|\[/?(inst|system)\]`)

	return d
}

func (d *Detector) register(name, pattern string) {
	d.signatures = append(d.signatures, Signature{
		Name:  name,
		regex: regexp.MustCompile(pattern),
	})
}

// Scan lowercases the raw (pre-cleaning) input and returns the identifiers
// of every matching signature. The input is never mutated.
func (d *Detector) Scan(rawText string) []string {
	lowered := toLowerASCII(rawText)
	var matches []string
	for _, sig := range d.signatures {
		if sig.regex.MatchString(lowered) {
			matches = append(matches, sig.Name)
		}
	}
	return matches
}

// toLowerASCII lowercases without locale-dependent folding; the signatures
// are ASCII.
func toLowerASCII(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
