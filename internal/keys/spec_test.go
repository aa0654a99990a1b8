package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSingleKeyDefaults(t *testing.T) {
	strokes, err := Parse("home")
	require.NoError(t, err)
	require.Len(t, strokes, 1)
	require.Equal(t, "home", strokes[0].Key.Canonical)
	require.Equal(t, "Home", strokes[0].Key.Keysym)
	require.Equal(t, DirectionPress, strokes[0].Direction)
	require.Equal(t, 1, strokes[0].Repeat)
	require.Zero(t, strokes[0].InnerPause)
	require.Zero(t, strokes[0].OuterPause)
}

func TestParseElementMatrix(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		key       string
		mods      []string
		direction Direction
		repeat    int
		inner     time.Duration
		outer     time.Duration
	}{
		{name: "repeat", spec: "down:5", key: "down", direction: DirectionPress, repeat: 5},
		{name: "hold with pause", spec: "win:down/3", key: "win", direction: DirectionDown, repeat: 1, outer: 30 * time.Millisecond},
		{name: "release", spec: "win:up", key: "win", direction: DirectionUp, repeat: 1},
		{name: "modifier combo", spec: "c-z", key: "z", mods: []string{"ctrl"}, direction: DirectionPress, repeat: 1},
		{name: "double modifier", spec: "ca-left:2", key: "left", mods: []string{"ctrl", "alt"}, direction: DirectionPress, repeat: 2},
		{name: "inner and outer pause", spec: "p/50:3/50", key: "p", direction: DirectionPress, repeat: 3, inner: 500 * time.Millisecond, outer: 500 * time.Millisecond},
		{name: "inner pause only", spec: "l/90:4", key: "l", direction: DirectionPress, repeat: 4, inner: 900 * time.Millisecond},
		{name: "outer pause without repeat", spec: "dquote/3", key: "dquote", direction: DirectionPress, repeat: 1, outer: 30 * time.Millisecond},
		{name: "alias", spec: "pagedown", key: "pgdown", direction: DirectionPress, repeat: 1},
		{name: "zero repeat", spec: "tab:0", key: "tab", direction: DirectionPress, repeat: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			strokes, err := Parse(tc.spec)
			require.NoError(t, err)
			require.Len(t, strokes, 1)

			stroke := strokes[0]
			require.Equal(t, tc.key, stroke.Key.Canonical)
			mods := make([]string, 0, len(stroke.Modifiers))
			for _, m := range stroke.Modifiers {
				mods = append(mods, m.Canonical)
			}
			if len(tc.mods) == 0 {
				require.Empty(t, mods)
			} else {
				require.Equal(t, tc.mods, mods)
			}
			require.Equal(t, tc.direction, stroke.Direction)
			require.Equal(t, tc.repeat, stroke.Repeat)
			require.Equal(t, tc.inner, stroke.InnerPause)
			require.Equal(t, tc.outer, stroke.OuterPause)
		})
	}
}

func TestParseListPreservesOrder(t *testing.T) {
	strokes, err := Parse("shift:up, ctrl:up, alt:up, win:up")
	require.NoError(t, err)
	require.Len(t, strokes, 4)

	got := make([]string, 0, len(strokes))
	for _, s := range strokes {
		require.Equal(t, DirectionUp, s.Direction)
		require.True(t, s.Key.Modifier)
		got = append(got, s.Key.Canonical)
	}
	require.Equal(t, []string{"shift", "ctrl", "alt", "win"}, got)
}

func TestParseRejectsMalformedSpecs(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr string
	}{
		{spec: "", wantErr: "must not be empty"},
		{spec: "up,,down", wantErr: "empty element"},
		{spec: "hyperdrive", wantErr: "unknown key name"},
		{spec: "up:sideways", wantErr: "invalid repeat or direction"},
		{spec: "up:-1", wantErr: "repeat must be >= 0"},
		{spec: "win/3:down", wantErr: "inner pause is not allowed"},
		{spec: "up/abc", wantErr: "invalid pause"},
	}

	for _, tc := range tests {
		t.Run(tc.spec, func(t *testing.T) {
			_, err := Parse(tc.spec)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestStrokeStringRoundTrip(t *testing.T) {
	for _, spec := range []string{"down:5", "win:down/3", "c-z", "l/90:4", "home", "ca-left:2/10"} {
		strokes, err := Parse(spec)
		require.NoError(t, err)
		require.Len(t, strokes, 1)
		require.Equal(t, spec, strokes[0].String(), spec)
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	name, ok := Lookup(" F5 ")
	require.True(t, ok)
	require.Equal(t, "f5", name.Canonical)
	require.Equal(t, "F5", name.Keysym)

	_, ok = Lookup("f13")
	require.False(t, ok)
}
