// Package knowledge provides the learned question/answer store for Jarvis.
//
// A KnowledgeBase maps exact question text to an answer and remembers
// insertion order so the persisted file diffs cleanly. The Store facade loads
// it once at startup and writes it through to a Backend after every addition.
package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is one learned question/answer pair. Question is the lookup key.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// KnowledgeBase is an insertion-ordered mapping from question to answer.
// Keys are compared by exact string identity; near-duplicates coexist.
// The zero value is not usable, use NewKnowledgeBase.
type KnowledgeBase struct {
	order   []string
	answers map[string]string
}

// NewKnowledgeBase returns an empty knowledge base, optionally seeded with entries.
func NewKnowledgeBase(entries ...Entry) *KnowledgeBase {
	kb := &KnowledgeBase{answers: make(map[string]string, len(entries))}
	for _, e := range entries {
		kb.Set(e.Question, e.Answer)
	}
	return kb
}

// Len returns the number of entries.
func (kb *KnowledgeBase) Len() int {
	return len(kb.order)
}

// Get returns the answer stored for question.
func (kb *KnowledgeBase) Get(question string) (string, bool) {
	answer, ok := kb.answers[question]
	return answer, ok
}

// Set inserts or overwrites the answer for question. Overwriting keeps the
// original position. It returns the previous answer, if any.
func (kb *KnowledgeBase) Set(question, answer string) (previous string, existed bool) {
	previous, existed = kb.answers[question]
	if !existed {
		kb.order = append(kb.order, question)
	}
	kb.answers[question] = answer
	return previous, existed
}

// remove deletes question. Only used to roll back a failed write.
func (kb *KnowledgeBase) remove(question string) {
	if _, ok := kb.answers[question]; !ok {
		return
	}
	delete(kb.answers, question)
	for i, q := range kb.order {
		if q == question {
			kb.order = append(kb.order[:i], kb.order[i+1:]...)
			break
		}
	}
}

// Questions returns the stored questions in insertion order.
func (kb *KnowledgeBase) Questions() []string {
	out := make([]string, len(kb.order))
	copy(out, kb.order)
	return out
}

// Entries returns all entries in insertion order.
func (kb *KnowledgeBase) Entries() []Entry {
	out := make([]Entry, 0, len(kb.order))
	for _, q := range kb.order {
		out = append(out, Entry{Question: q, Answer: kb.answers[q]})
	}
	return out
}

// Clone returns a deep copy.
func (kb *KnowledgeBase) Clone() *KnowledgeBase {
	return NewKnowledgeBase(kb.Entries()...)
}

// MarshalJSON encodes the base as a flat JSON object, keys in insertion order.
func (kb *KnowledgeBase) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, q := range kb.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(q)
		if err != nil {
			return nil, fmt.Errorf("encode question %q: %w", q, err)
		}
		val, err := json.Marshal(kb.answers[q])
		if err != nil {
			return nil, fmt.Errorf("encode answer for %q: %w", q, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object of string to string, preserving
// the key order found in the document. A repeated key keeps its first
// position and its last value.
func (kb *KnowledgeBase) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read knowledge object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("knowledge base must be a JSON object, got %v", tok)
	}

	fresh := NewKnowledgeBase()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read question: %w", err)
		}
		question, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("question must be a string, got %v", keyTok)
		}

		var answer string
		if err := dec.Decode(&answer); err != nil {
			return fmt.Errorf("answer for %q must be a string: %w", question, err)
		}
		fresh.Set(question, answer)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("close knowledge object: %w", err)
	}

	*kb = *fresh
	return nil
}
