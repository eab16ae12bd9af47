// Package answers reads questionnaire answer files from disk.
package answers

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/pieme/nzpoints/internal/questionnaire"
)

// File is a loaded answers document with its content hash.
type File struct {
	Path  string
	Raw   []byte
	Hash  string
	State questionnaire.State
}

// Load reads a YAML or JSON answers file. A path of "-" reads stdin.
func Load(path string) (*File, error) {
	data, err := readPath(path)
	if err != nil {
		return nil, fmt.Errorf("answers.Load: %w", err)
	}
	s, err := questionnaire.ParseState(data)
	if err != nil {
		return nil, fmt.Errorf("answers.Load: %s: %w", path, err)
	}
	return &File{Path: path, Raw: data, Hash: Hash(data), State: s}, nil
}

// LoadStep reads one step's answers from path.
func LoadStep(path string, step questionnaire.Step) (questionnaire.Category, error) {
	data, err := readPath(path)
	if err != nil {
		return nil, fmt.Errorf("answers.LoadStep: %w", err)
	}
	c, err := questionnaire.DecodeStep(step, data)
	if err != nil {
		return nil, fmt.Errorf("answers.LoadStep: %s: %w", path, err)
	}
	return c, nil
}

// Hash returns the content hash recorded alongside results.
func Hash(data []byte) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data))
}

var stdin io.Reader = os.Stdin

func readPath(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
