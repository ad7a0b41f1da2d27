package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCommands(t *testing.T) {
	assert.Equal(t, []string{"md", "i", "p0:100"}, splitCommands("md, i,,p0:100 "))
	assert.Empty(t, splitCommands(""))
	assert.Empty(t, splitCommands(" , "))
}
