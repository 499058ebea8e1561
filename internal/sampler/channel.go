package sampler

import (
	"fmt"
	"strings"
)

// Channel names one scalar color signal of a Sample.
type Channel int

const (
	ChannelR Channel = iota
	ChannelG
	ChannelB
	ChannelH
	ChannelS
	ChannelV
	ChannelGray
)

// Channels lists every channel in fitting order.
var Channels = []Channel{ChannelR, ChannelG, ChannelB, ChannelH, ChannelS, ChannelV, ChannelGray}

var channelNames = map[Channel]string{
	ChannelR:    "R",
	ChannelG:    "G",
	ChannelB:    "B",
	ChannelH:    "H",
	ChannelS:    "S",
	ChannelV:    "V",
	ChannelGray: "Gray",
}

func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return "Unknown"
}

// ParseChannel maps a channel name ("H", "gray", ...) to its Channel.
func ParseChannel(name string) (Channel, error) {
	for ch, n := range channelNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return ch, nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", name)
}

// MarshalText encodes the channel by name.
func (c Channel) MarshalText() ([]byte, error) {
	if _, ok := channelNames[c]; !ok {
		return nil, fmt.Errorf("unknown channel %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a channel name.
func (c *Channel) UnmarshalText(text []byte) error {
	ch, err := ParseChannel(string(text))
	if err != nil {
		return err
	}
	*c = ch
	return nil
}
