package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rover/pkg/status"
)

func TestDescribe(t *testing.T) {
	require.Equal(t, `rv1/meta: {"id":"rv1"}`, describe("rv1/meta", []byte(`{"id":"rv1"}`)))
	require.Equal(t, "rv1/meta: gone", describe("rv1/meta", nil))
	require.Equal(t, "rv1/other: 3 bytes", describe("rv1/other", []byte("abc")))

	data, err := (&status.Report{Role: status.RoleController, Moving: true}).Encode()
	require.NoError(t, err)
	require.Contains(t, describe("rv1/status", data), "rv1/status: [controller]")

	require.Contains(t, describe("rv1/status", []byte{0xff, 0xff}), "bad report")
}
