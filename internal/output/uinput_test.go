package output

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rbright/voxkeys/internal/keys"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	events []string
	failOn int
}

func (d *fakeDevice) Down(code int) error {
	if d.failOn != 0 && code == d.failOn {
		return errors.New("device gone")
	}
	d.events = append(d.events, fmt.Sprintf("+%d", code))
	return nil
}

func (d *fakeDevice) Up(code int) error {
	d.events = append(d.events, fmt.Sprintf("-%d", code))
	return nil
}

var testCodes = map[string]keyCode{
	"ctrl":  {code: 29},
	"shift": {code: 42},
	"win":   {code: 125},
	"a":     {code: 30},
	"b":     {code: 48},
	"v":     {code: 47},
	"3":     {code: 4},
	"space": {code: 57},
	"colon": {code: 39, shift: true},
	"down":  {code: 108},
}

func newTestUinput(dev *fakeDevice) *Uinput {
	return newUinput(dev, testCodes, 0, nil)
}

func TestUinputSendKeyPressWithModifiers(t *testing.T) {
	dev := &fakeDevice{}
	u := newTestUinput(dev)

	strokes, err := keys.Parse("c-a, down:2")
	require.NoError(t, err)
	for _, stroke := range strokes {
		require.NoError(t, u.SendKey(context.Background(), stroke))
	}
	require.Equal(t, []string{"+29", "+30", "-30", "-29", "+108", "-108", "+108", "-108"}, dev.events)
}

func TestUinputHeldModifierSurvivesFlushUntilDiscard(t *testing.T) {
	dev := &fakeDevice{}
	u := newTestUinput(dev)
	ctx := context.Background()

	strokes, err := keys.Parse("win:down")
	require.NoError(t, err)
	require.NoError(t, u.SendKey(ctx, strokes[0]))
	require.NoError(t, u.TypeText(ctx, "3"))
	require.NoError(t, u.Flush(ctx))
	require.Equal(t, []string{"+125", "+4", "-4"}, dev.events)

	u.Discard()
	require.Equal(t, []string{"+125", "+4", "-4", "-125"}, dev.events)
	require.Empty(t, u.held)
}

func TestUinputDiscardReleasesHeldLetter(t *testing.T) {
	dev := &fakeDevice{}
	u := newTestUinput(dev)
	ctx := context.Background()

	strokes, err := keys.Parse("a:down")
	require.NoError(t, err)
	require.NoError(t, u.SendKey(ctx, strokes[0]))
	require.Equal(t, map[string]int{"a": 30}, u.held)

	u.Discard()
	require.Equal(t, []string{"+30", "-30"}, dev.events)
	require.Empty(t, u.held)
}

func TestUinputReleaseForgetsHeldModifiers(t *testing.T) {
	dev := &fakeDevice{}
	u := newTestUinput(dev)
	ctx := context.Background()

	strokes, err := keys.Parse("c-a:down, c-a:up")
	require.NoError(t, err)
	require.NoError(t, u.SendKey(ctx, strokes[0]))
	require.Equal(t, map[string]int{"ctrl": 29, "a": 30}, u.held)
	require.NoError(t, u.SendKey(ctx, strokes[1]))
	require.Empty(t, u.held)

	u.Discard()
	require.Equal(t, []string{"+29", "+30", "-30", "-29"}, dev.events)
}

func TestUinputTypeTextAppliesShift(t *testing.T) {
	dev := &fakeDevice{}
	u := newTestUinput(dev)

	require.NoError(t, u.TypeText(context.Background(), "Ab:"))
	require.Equal(t, []string{
		"+42", "+30", "-30", "-42",
		"+48", "-48",
		"+42", "+39", "-39", "-42",
	}, dev.events)
}

func TestUinputTypeTextFallsBackToClipboard(t *testing.T) {
	dev := &fakeDevice{}
	u := newTestUinput(dev)

	clipboard := "previous"
	writes := make([]string, 0, 2)
	u.readClipboard = func() (string, error) { return clipboard, nil }
	u.writeClipboard = func(text string) error {
		writes = append(writes, text)
		clipboard = text
		return nil
	}

	require.NoError(t, u.TypeText(context.Background(), "héllo"))
	require.Equal(t, []string{"héllo", "previous"}, writes)
	require.Equal(t, []string{"+29", "+47", "-47", "-29"}, dev.events)
}

func TestUinputReportsDeviceErrors(t *testing.T) {
	dev := &fakeDevice{failOn: 108}
	u := newTestUinput(dev)

	strokes, err := keys.Parse("down")
	require.NoError(t, err)
	err = u.SendKey(context.Background(), strokes[0])
	require.Error(t, err)
	require.Contains(t, err.Error(), "device gone")
}

func TestUinputRejectsUnmappedKeys(t *testing.T) {
	u := newTestUinput(&fakeDevice{})

	strokes, err := keys.Parse("f5")
	require.NoError(t, err)
	err = u.SendKey(context.Background(), strokes[0])
	require.Error(t, err)
	require.Contains(t, err.Error(), "no key code")
}

func TestWaitHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, wait(ctx, time.Second), context.Canceled)
}
