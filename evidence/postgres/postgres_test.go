package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertToolCall_RejectsWrongType(t *testing.T) {
	s := &Store{}
	err := s.InsertToolCall(context.Background(), "not a tool call")
	assert.Error(t, err)
}

func TestInsertToolResult_RejectsWrongType(t *testing.T) {
	s := &Store{}
	err := s.InsertToolResult(context.Background(), 42)
	assert.Error(t, err)
}

func TestInsertMessage_RejectsWrongType(t *testing.T) {
	s := &Store{}
	err := s.InsertMessage(context.Background(), map[string]string{})
	assert.Error(t, err)
}
