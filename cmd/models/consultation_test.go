package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{StatusPending, StatusPaid},
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusPaid, StatusCompleted},
		{StatusPaid, StatusCancelled},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusCancelled},
	}
	for _, pair := range allowed {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	denied := [][2]string{
		{StatusPending, StatusCompleted},
		{StatusPaid, StatusPending},
		{StatusCancelled, StatusCompleted},
		{StatusCancelled, StatusPaid},
		{StatusCompleted, StatusCancelled},
		{StatusPaid, StatusPaid},
	}
	for _, pair := range denied {
		assert.False(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}
}
