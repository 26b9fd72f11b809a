package notify

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
	"github.com/altuslabsxyz/stakekit/internal/events"
	"github.com/altuslabsxyz/stakekit/internal/output"
)

func TestConsole(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := output.NewLoggerWithWriters(&out, &errOut)
	logger.SetNoColor(true)

	c := NewConsole(logger, map[string]output.NoticeLevel{"Failed": output.NoticeError})
	c.Notify(ports.Notification{Title: "Failed", Subtitle: "Error with transaction"})
	c.Notify(ports.Notification{Title: "Pending", Subtitle: "Transaction initiated"})

	assert.Equal(t, "[Failed] Error with transaction\n[Pending] Transaction initiated\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestFeedAndMulti(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := make(chan events.Notification, 1)
	bus.SubscribeNotifications(ch)

	rec := &Recorder{}
	m := Multi{NewFeed(bus), nil, rec}
	m.Notify(ports.Notification{Title: "In Block", Subtitle: "Transaction in block"})

	select {
	case n := <-ch:
		assert.Equal(t, "In Block", n.Title)
	case <-time.After(time.Second):
		t.Fatal("notification not published")
	}
	require.Len(t, rec.All(), 1)
	assert.Equal(t, "Transaction in block", rec.All()[0].Subtitle)
}
