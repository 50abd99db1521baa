// Package wifi queries nl80211, the Linux wireless configuration protocol,
// over generic netlink. It enumerates wireless interfaces and fetches
// station statistics, scan results, and channel survey data for them.
//
// Every field of the record types in this package is populated only when
// the kernel included the matching attribute in its reply. A nil field
// means the attribute was absent, never that its value was zero.
package wifi

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"runtime"
	"unicode/utf8"
)

var (
	// ErrMalformedAttribute is returned when a fixed-width attribute's
	// payload does not match the width its tag requires.
	ErrMalformedAttribute = errors.New("malformed attribute")

	// ErrProtocol is returned when the kernel answers a request with an
	// explicit error message. The underlying errno is wrapped.
	ErrProtocol = errors.New("netlink protocol error")

	// ErrSend is returned when a request could not be transmitted.
	ErrSend = errors.New("netlink send failed")

	// ErrReceive is returned when the reply stream failed below the
	// protocol level, for example because the connection was closed or a
	// deadline expired.
	ErrReceive = errors.New("netlink receive failed")
)

// errUnimplemented is returned by all functions on platforms that
// do not have package wifi implemented.
var errUnimplemented = fmt.Errorf("wifi: not implemented on %s", runtime.GOOS)

// errInvalidIE is returned when one or more IEs are malformed.
var errInvalidIE = errors.New("invalid 802.11 information element")

// An InterfaceType is the operating mode of an Interface.
type InterfaceType int

const (
	// InterfaceTypeUnspecified indicates that an interface's type is unspecified
	// and the driver determines its function.
	InterfaceTypeUnspecified InterfaceType = iota

	// InterfaceTypeAdHoc indicates that an interface is part of an independent
	// basic service set (BSS) of client devices without a controlling access
	// point.
	InterfaceTypeAdHoc

	// InterfaceTypeStation indicates that an interface is part of a managed
	// basic service set (BSS) of client devices with a controlling access point.
	InterfaceTypeStation

	// InterfaceTypeAP indicates that an interface is an access point.
	InterfaceTypeAP

	// InterfaceTypeAPVLAN indicates that an interface is a VLAN interface
	// associated with an access point.
	InterfaceTypeAPVLAN

	// InterfaceTypeWDS indicates that an interface is a wireless distribution
	// interface, used as part of a network of multiple access points.
	InterfaceTypeWDS

	// InterfaceTypeMonitor indicates that an interface is a monitor interface,
	// receiving all frames from all clients in a given network.
	InterfaceTypeMonitor

	// InterfaceTypeMeshPoint indicates that an interface is part of a wireless
	// mesh network.
	InterfaceTypeMeshPoint

	// InterfaceTypeP2PClient indicates that an interface is a client within
	// a peer-to-peer network.
	InterfaceTypeP2PClient

	// InterfaceTypeP2PGroupOwner indicates that an interface is the group
	// owner within a peer-to-peer network.
	InterfaceTypeP2PGroupOwner

	// InterfaceTypeP2PDevice indicates that an interface is a device within
	// a peer-to-peer client network.
	InterfaceTypeP2PDevice

	// InterfaceTypeOCB indicates that an interface is outside the context
	// of a basic service set (BSS).
	InterfaceTypeOCB

	// InterfaceTypeNAN indicates that an interface is part of a near-me
	// area network (NAN).
	InterfaceTypeNAN
)

// String returns the string representation of an InterfaceType.
func (t InterfaceType) String() string {
	switch t {
	case InterfaceTypeUnspecified:
		return "unspecified"
	case InterfaceTypeAdHoc:
		return "ad-hoc"
	case InterfaceTypeStation:
		return "station"
	case InterfaceTypeAP:
		return "access point"
	case InterfaceTypeAPVLAN:
		return "access point/VLAN"
	case InterfaceTypeWDS:
		return "wireless distribution"
	case InterfaceTypeMonitor:
		return "monitor"
	case InterfaceTypeMeshPoint:
		return "mesh point"
	case InterfaceTypeP2PClient:
		return "P2P client"
	case InterfaceTypeP2PGroupOwner:
		return "P2P group owner"
	case InterfaceTypeP2PDevice:
		return "P2P device"
	case InterfaceTypeOCB:
		return "outside context of BSS"
	case InterfaceTypeNAN:
		return "near-me area network"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// An Interface is a WiFi network interface.
type Interface struct {
	// The index of the interface.
	Index *int32

	// The operating mode of the interface.
	Type *InterfaceType

	// The service set identifier the interface is joined to, verbatim as
	// the kernel sent it. Not null-terminated and not necessarily valid
	// UTF-8.
	SSID []byte

	// The hardware address of the interface.
	HardwareAddr net.HardwareAddr

	// The name of the interface, verbatim including any trailing NUL the
	// kernel sends.
	Name []byte

	// The interface's wireless frequency in MHz.
	Frequency *uint32

	// The channel type of the selected channel.
	ChannelType *uint32

	// The width of the selected channel.
	ChannelWidth *uint32

	// Center frequencies of the selected channel, in MHz.
	CenterFreq1 *uint32
	CenterFreq2 *uint32

	// The transmit power level in signed mBm units, carried as the raw
	// 32-bit pattern the kernel sent.
	TransmitPower *uint32

	// The index of the physical device (wiphy) this interface belongs to,
	// cf. /sys/class/ieee80211/<phyname>/index.
	PHY *uint32

	// Wireless device identifier, used for pseudo-devices that don't have
	// a netdev.
	Device *uint64
}

// A Station contains statistics about a peer link of a WiFi interface.
type Station struct {
	// The index of the interface the station is reported for.
	InterfaceIndex *int32

	// The hardware address of the station.
	HardwareAddr net.HardwareAddr

	// The time since the station last connected, in seconds.
	ConnectedTime *uint32

	// The time since wireless activity last occurred, in milliseconds.
	InactiveTime *uint32

	// The number of bytes received from and transmitted to this station.
	ReceivedBytes    *uint32
	TransmittedBytes *uint32

	// The number of packets received from and transmitted to this station.
	ReceivedPackets    *uint32
	TransmittedPackets *uint32

	// The signal strength of the last received PPDU and its running
	// average, in dBm.
	Signal        *int8
	SignalAverage *int8

	// The number of times the station has had to retry while sending a
	// packet.
	TransmitRetries *uint32

	// The number of times a packet transmission failed.
	TransmitFailed *uint32

	// The number of times a beacon loss was detected.
	BeaconLoss *uint32
}

// A BSSStatus indicates the current status of a client within a BSS.
type BSSStatus int

const (
	// BSSStatusAuthenticated indicates that a client is authenticated with a BSS.
	BSSStatusAuthenticated BSSStatus = iota

	// BSSStatusAssociated indicates that a client is associated with a BSS.
	BSSStatusAssociated

	// BSSStatusIBSSJoined indicates that a client has joined an independent BSS.
	BSSStatusIBSSJoined
)

// String returns the string representation of a BSSStatus.
func (s BSSStatus) String() string {
	switch s {
	case BSSStatusAuthenticated:
		return "authenticated"
	case BSSStatusAssociated:
		return "associated"
	case BSSStatusIBSSJoined:
		return "IBSS joined"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// A BSS is an 802.11 basic service set, one entry of an interface's scan
// result table.
type BSS struct {
	// The BSS service set identifier. In infrastructure mode, this is the
	// hardware address of the wireless access point.
	BSSID net.HardwareAddr

	// The frequency used by the BSS, in MHz.
	Frequency *uint32

	// The interval between beacon transmissions for this BSS, in time
	// units (TU, 1024 microseconds).
	BeaconInterval *uint16

	// The age of this scan table entry, in milliseconds.
	LastSeen *uint32

	// The status of the client within the BSS. Only the BSS the client is
	// currently joined to carries a status.
	Status *BSSStatus

	// The raw 802.11 information elements broadcast by the BSS, verbatim.
	InformationElements []byte
}

// SSID extracts the service set identifier from the BSS's information
// elements. It returns an empty string if the elements are absent,
// malformed, or carry no SSID.
func (b *BSS) SSID() string {
	ies, err := parseIEs(b.InformationElements)
	if err != nil {
		return ""
	}

	for _, ie := range ies {
		if ie.ID == ieSSID {
			return decodeSSID(ie.Data)
		}
	}

	return ""
}

// A Survey contains measurements of a single channel surveyed by a WiFi
// interface's radio.
type Survey struct {
	// The frequency of the surveyed channel, in MHz.
	Frequency *uint32

	// The noise level, in dBm.
	Noise *int8

	// Whether the channel is currently in use.
	InUse bool

	// The time the radio has spent on this channel, in milliseconds.
	ChannelTime *uint64

	// The time the radio has spent on this channel while it was busy.
	ChannelTimeBusy *uint64

	// The time the radio has spent on this channel while it was busy with
	// external traffic.
	ChannelTimeExtBusy *uint64

	// The time the radio has spent receiving and transmitting data on
	// this channel.
	ChannelTimeRx *uint64
	ChannelTimeTx *uint64

	// The time the radio has spent on this channel while scanning.
	ChannelTimeScan *uint64
}

// FrequencyToChannel returns the channel number given the frequency in MHz, as
// defined by IEEE802.11-2007, 17.3.8.3.2 and Annex J.
func FrequencyToChannel(freq int) int {
	if freq == 2484 {
		return 14
	} else if freq < 2484 {
		return (freq - 2407) / 5
	} else if freq >= 4910 && freq <= 4980 {
		return (freq - 4000) / 5
	} else if freq <= 45000 {
		return (freq - 5000) / 5
	} else if freq >= 58320 && freq <= 64800 {
		return (freq - 56160) / 2160
	} else {
		return 0
	}
}

// Constants representing the standard WiFi frequency bands. The values
// match the nl80211_band enumeration.
const (
	Band2GHz = iota
	Band5GHz
	Band60GHz
)

// ChannelToFrequency returns the frequency given the channel number and the
// band, as there are overlapping channel numbers between bands.
func ChannelToFrequency(channel int, band int) int {
	if channel <= 0 {
		return 0
	}

	switch band {
	case Band2GHz:
		if channel == 14 {
			return 2484
		} else if channel < 14 {
			return 2407 + channel*5
		}
	case Band5GHz:
		if channel >= 182 && channel <= 196 {
			return 4000 + channel*5
		}
		return 5000 + channel*5
	case Band60GHz:
		if channel < 5 {
			return 56160 + channel*2160
		}
	}
	return 0
}

// List of 802.11 Information Element types.
const (
	ieSSID = 0
)

// An ie is an 802.11 information element.
type ie struct {
	ID uint8
	// Length field implied by length of data
	Data []byte
}

// parseIEs parses zero or more ies from a byte slice.
// Reference:
//
//	https://www.safaribooksonline.com/library/view/80211-wireless-networks/0596100523/ch04.html#wireless802dot112-CHP-4-FIG-31
func parseIEs(b []byte) ([]ie, error) {
	var ies []ie
	var i int
	for {
		if len(b[i:]) == 0 {
			break
		}
		if len(b[i:]) < 2 {
			return nil, errInvalidIE
		}

		id := b[i]
		i++
		l := int(b[i])
		i++

		if len(b[i:]) < l {
			return nil, errInvalidIE
		}

		ies = append(ies, ie{
			ID:   id,
			Data: b[i : i+l],
		})

		i += l
	}

	return ies, nil
}

// decodeSSID safely parses a byte slice into UTF-8 runes, and returns the
// resulting string from the runes.
func decodeSSID(b []byte) string {
	buf := bytes.NewBuffer(nil)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		b = b[size:]

		buf.WriteRune(r)
	}

	return buf.String()
}
