package domain

import (
	"fmt"
	"strings"
)

// DecayChannel identifies one of the supported resonance pairing recipes.
// The set is closed; adding a channel means extending every switch below.
type DecayChannel uint8

const (
	// ChannelDs1ToDstarK0s pairs D* candidates with K0s hypotheses.
	ChannelDs1ToDstarK0s DecayChannel = iota + 1
	// ChannelDs2StarToDplusK0s pairs D+ candidates with K0s hypotheses.
	ChannelDs2StarToDplusK0s
	// ChannelXcResToDplusLambda pairs D+ candidates with Lambda or
	// anti-Lambda hypotheses depending on the D sign.
	ChannelXcResToDplusLambda
)

// String returns the string representation of DecayChannel.
func (c DecayChannel) String() string {
	switch c {
	case ChannelDs1ToDstarK0s:
		return "Ds1ToDstarK0s"
	case ChannelDs2StarToDplusK0s:
		return "Ds2StarToDplusK0s"
	case ChannelXcResToDplusLambda:
		return "XcResToDplusLambda"
	default:
		return "Unknown"
	}
}

// IsValid checks if the channel is a known pairing recipe.
func (c DecayChannel) IsValid() bool {
	switch c {
	case ChannelDs1ToDstarK0s, ChannelDs2StarToDplusK0s, ChannelXcResToDplusLambda:
		return true
	default:
		return false
	}
}

// ParseChannel maps a configuration string onto a DecayChannel.
func ParseChannel(s string) (DecayChannel, error) {
	for _, c := range []DecayChannel{ChannelDs1ToDstarK0s, ChannelDs2StarToDplusK0s, ChannelXcResToDplusLambda} {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown decay channel %q", s)
}

// ParentKind returns the D variant the channel pairs with.
func (c DecayChannel) ParentKind() DKind {
	if c == ChannelDs1ToDstarK0s {
		return DKindDstar
	}
	return DKindDplus
}

// ParentMass returns the nominal mass of the channel's D leg, the reference
// for the D mass-window selection.
func (c DecayChannel) ParentMass() float64 {
	if c == ChannelDs1ToDstarK0s {
		return MassDStar
	}
	return MassDPlus
}

// RelevantHypotheses returns the V0 hypothesis bits the channel accepts for
// a D candidate of the given signed type. The Lambda channel selects the
// Lambda hypothesis for positive signed types and anti-Lambda for negative.
func (c DecayChannel) RelevantHypotheses(signedType int8) V0SelectionBits {
	switch c {
	case ChannelDs1ToDstarK0s, ChannelDs2StarToDplusK0s:
		return 1 << HypK0Short
	case ChannelXcResToDplusLambda:
		if signedType > 0 {
			return 1 << HypLambda
		}
		return 1 << HypAntiLambda
	default:
		return 0
	}
}
