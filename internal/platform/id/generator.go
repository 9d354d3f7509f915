package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const defaultLength = 21

// Generator creates opaque ids for run and request correlation.
type Generator interface {
	NewID() (string, error)
}

type NanoGenerator struct {
	length int
}

func NewNanoGenerator() *NanoGenerator {
	return &NanoGenerator{length: defaultLength}
}

func (g *NanoGenerator) NewID() (string, error) {
	length := g.length
	if length <= 0 {
		length = defaultLength
	}
	value, err := gonanoid.New(length)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return value, nil
}
