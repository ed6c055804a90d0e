package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptFallbackDisabledByDefault(t *testing.T) {
	for _, cmd := range []string{"serve", "take", "transcript"} {
		t.Run(cmd, func(t *testing.T) {
			c, _, err := rootCmd().Find([]string{cmd})
			require.NoError(t, err)
			f := c.Flags().Lookup("stt-backend")
			require.NotNil(t, f)
			assert.Equal(t, "none", f.DefValue)
		})
	}
}
