package tdms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePathRoot(t *testing.T) {
	group, channel, err := parsePath("/")
	require.NoError(t, err)
	assert.Empty(t, group)
	assert.Empty(t, channel)
}

func TestParsePathGroup(t *testing.T) {
	group, channel, err := parsePath("/'Measurements'")
	require.NoError(t, err)
	assert.Equal(t, "Measurements", group)
	assert.Empty(t, channel)
}

func TestParsePathChannel(t *testing.T) {
	group, channel, err := parsePath("/'Measurements'/'Voltage'")
	require.NoError(t, err)
	assert.Equal(t, "Measurements", group)
	assert.Equal(t, "Voltage", channel)
}

func TestParsePathEscapedQuote(t *testing.T) {
	group, channel, err := parsePath("/'Group ''A'''/'Chan''nel'")
	require.NoError(t, err)
	assert.Equal(t, "Group 'A'", group)
	assert.Equal(t, "Chan'nel", channel)
}

func TestParsePathInvalid(t *testing.T) {
	for _, path := range []string{"", "bad", "/'unterminated", "/'a'/'b'/'c'"} {
		_, _, err := parsePath(path)
		assert.Truef(t, errors.Is(err, ErrInvalidPath), "path %q: expected ErrInvalidPath, got %v", path, err)
	}
}

func TestBuildPathRoundTrip(t *testing.T) {
	cases := []struct{ group, channel string }{
		{"", ""},
		{"Measurements", ""},
		{"Measurements", "Voltage"},
		{"Group 'A'", "Chan'nel"},
	}

	for _, c := range cases {
		path := buildPath(c.group, c.channel)
		group, channel, err := parsePath(path)
		require.NoErrorf(t, err, "round-tripping %q", path)
		assert.Equal(t, c.group, group)
		assert.Equal(t, c.channel, channel)
	}
}
