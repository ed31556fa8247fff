package common

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsAffirmative reports whether answer is a "yes" to an overwrite prompt. Only y or Y,
// surrounding whitespace ignored, counts.
func IsAffirmative(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}

// PromptOverwrite returns a confirmation function that writes a question to out and reads
// one line of answer from in. A read error counts as a refusal.
func PromptOverwrite(in io.Reader, out io.Writer) func(path string) bool {
	reader := bufio.NewReader(in)
	return func(path string) bool {
		fmt.Fprintf(out, "The file '%s' already exists. Do you want to overwrite it? Type 'Y' to confirm: ", path)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		return IsAffirmative(line)
	}
}
