package ant

import (
	"time"

	"github.com/nerrad567/antplus-core/internal/ant/channel"
)

// Snapshot is a point-in-time view of the bridge, refreshed after every
// poll cycle.
type Snapshot struct {
	SiteID      string          `json:"site_id"`
	Running     bool            `json:"running"`
	MaxChannels int             `json:"max_channels"`
	Channels    []ChannelStatus `json:"channels"`
	Sensors     []SensorStatus  `json:"sensors"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ChannelStatus describes one radio channel slot.
type ChannelStatus struct {
	Index int `json:"index"`

	// Sensor is empty for a free slot.
	Sensor string `json:"sensor,omitempty"`

	// State is the channel lifecycle state, or "free".
	State string `json:"state"`
}

// SensorStatus describes one configured sensor.
type SensorStatus struct {
	Name    string `json:"name"`
	Profile string `json:"profile"`

	// Channel is the assigned slot, or -1.
	Channel      int    `json:"channel"`
	State        string `json:"state"`
	DeviceNumber uint16 `json:"device_number"`
	Pages        uint64 `json:"pages"`
	Dropped      uint64 `json:"dropped"`

	// LastPage is nil until the first page arrives.
	LastPage *PageMessage `json:"last_page,omitempty"`
}

// Snapshot returns a copy of the latest bridge view. Safe for concurrent
// use.
func (b *Bridge) Snapshot() Snapshot {
	b.snapMu.RLock()
	defer b.snapMu.RUnlock()

	out := b.snapshot
	out.Channels = append([]ChannelStatus(nil), b.snapshot.Channels...)
	out.Sensors = append([]SensorStatus(nil), b.snapshot.Sensors...)
	return out
}

// Sensor returns the latest status of the named sensor.
func (b *Bridge) Sensor(name string) (SensorStatus, bool) {
	b.snapMu.RLock()
	defer b.snapMu.RUnlock()

	for _, s := range b.snapshot.Sensors {
		if s.Name == name {
			return s, true
		}
	}
	return SensorStatus{}, false
}

// Statistics returns the current counters. Safe for concurrent use.
func (b *Bridge) Statistics() Statistics {
	return Statistics{
		MessagesReceived: b.stats.received.Load(),
		MessagesSent:     b.sent.Load(),
		Pages:            b.stats.pages.Load(),
		DecodeErrors:     b.stats.decodeErrors.Load(),
		ChannelErrors:    b.stats.channelErrors.Load(),
		MailboxDrops:     b.drops.Load(),
		DriverErrors:     b.stats.driverErrors.Load(),
		SinkErrors:       b.stats.sinkErrors.Load(),
		Commands:         b.stats.commands.Load(),
		Reopens:          b.stats.reopens.Load(),
	}
}

// Tracking returns how many sensors are tracking their monitor.
func (b *Bridge) Tracking() (tracking, configured int) {
	b.snapMu.RLock()
	defer b.snapMu.RUnlock()

	for _, s := range b.snapshot.Sensors {
		if s.State == channel.StateTracking.String() {
			tracking++
		}
	}
	return tracking, len(b.snapshot.Sensors)
}

// updateSnapshot rebuilds the view. Poll goroutine only.
func (b *Bridge) updateSnapshot() {
	maxChannels := b.router.MaxChannels()
	channels := make([]ChannelStatus, maxChannels)
	for i := range channels {
		channels[i] = ChannelStatus{Index: i, State: "free"}
	}

	var drops uint64
	sensors := make([]SensorStatus, 0, len(b.sensors))
	for _, s := range b.sensors {
		dropped := s.mailbox.Dropped()
		drops += dropped

		status := SensorStatus{
			Name:         s.Name,
			Profile:      ProfileHeartRate,
			Channel:      -1,
			State:        s.display.State().String(),
			DeviceNumber: s.display.DeviceID(),
			Pages:        s.pages,
			Dropped:      dropped,
			LastPage:     s.lastPage,
		}
		if index, ok := s.mailbox.Assignment().Index(); ok {
			status.Channel = int(index)
			if int(index) < len(channels) {
				channels[index].Sensor = s.Name
				channels[index].State = status.State
			}
		}
		sensors = append(sensors, status)
	}
	b.drops.Store(drops)

	b.snapMu.Lock()
	b.snapshot.SiteID = b.siteID
	b.snapshot.MaxChannels = maxChannels
	b.snapshot.Channels = channels
	b.snapshot.Sensors = sensors
	b.snapshot.UpdatedAt = time.Now().UTC()
	b.snapMu.Unlock()
}
