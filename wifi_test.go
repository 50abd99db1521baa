package wifi

import (
	"reflect"
	"testing"
)

func TestInterfaceTypeString(t *testing.T) {
	tests := []struct {
		t InterfaceType
		s string
	}{
		{
			t: InterfaceTypeUnspecified,
			s: "unspecified",
		},
		{
			t: InterfaceTypeAdHoc,
			s: "ad-hoc",
		},
		{
			t: InterfaceTypeStation,
			s: "station",
		},
		{
			t: InterfaceTypeAP,
			s: "access point",
		},
		{
			t: InterfaceTypeWDS,
			s: "wireless distribution",
		},
		{
			t: InterfaceTypeMonitor,
			s: "monitor",
		},
		{
			t: InterfaceTypeMeshPoint,
			s: "mesh point",
		},
		{
			t: InterfaceTypeP2PClient,
			s: "P2P client",
		},
		{
			t: InterfaceTypeP2PGroupOwner,
			s: "P2P group owner",
		},
		{
			t: InterfaceTypeP2PDevice,
			s: "P2P device",
		},
		{
			t: InterfaceTypeOCB,
			s: "outside context of BSS",
		},
		{
			t: InterfaceTypeNAN,
			s: "near-me area network",
		},
		{
			t: InterfaceTypeNAN + 1,
			s: "unknown(13)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			if want, got := tt.s, tt.t.String(); want != got {
				t.Fatalf("unexpected interface type string:\n- want: %q\n-  got: %q",
					want, got)
			}
		})
	}
}

func TestBSSStatusString(t *testing.T) {
	tests := []struct {
		t BSSStatus
		s string
	}{
		{
			t: BSSStatusAuthenticated,
			s: "authenticated",
		},
		{
			t: BSSStatusAssociated,
			s: "associated",
		},
		{
			t: BSSStatusIBSSJoined,
			s: "IBSS joined",
		},
		{
			t: 3,
			s: "unknown(3)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			if want, got := tt.s, tt.t.String(); want != got {
				t.Fatalf("unexpected BSS status string:\n- want: %q\n-  got: %q",
					want, got)
			}
		})
	}
}

func TestBSSSSID(t *testing.T) {
	tests := []struct {
		name string
		bss  *BSS
		ssid string
	}{
		{
			name: "no information elements",
			bss:  &BSS{},
		},
		{
			name: "malformed information elements",
			bss: &BSS{
				InformationElements: []byte{0x00},
			},
		},
		{
			name: "no SSID element",
			bss: &BSS{
				InformationElements: []byte{0x01, 0x01, 0xff},
			},
		},
		{
			name: "OK ASCII",
			bss: &BSS{
				InformationElements: []byte{0x00, 0x03, 'f', 'o', 'o'},
			},
			ssid: "foo",
		},
		{
			name: "OK UTF-8",
			bss: &BSS{
				InformationElements: append(
					[]byte{0x00, 0x0d},
					[]byte("Hello, 世界")...,
				),
			},
			ssid: "Hello, 世界",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if want, got := tt.ssid, tt.bss.SSID(); want != got {
				t.Fatalf("unexpected SSID:\n- want: %q\n-  got: %q",
					want, got)
			}
		})
	}
}

func TestFrequencyToChannel(t *testing.T) {
	tests := []struct {
		freq    int
		channel int
	}{
		{freq: 2412, channel: 1},
		{freq: 2472, channel: 13},
		{freq: 2484, channel: 14},
		{freq: 4920, channel: 184},
		{freq: 5180, channel: 36},
		{freq: 5825, channel: 165},
		{freq: 58320, channel: 1},
		{freq: 64800, channel: 4},
		{freq: 70000, channel: 0},
	}

	for _, tt := range tests {
		if want, got := tt.channel, FrequencyToChannel(tt.freq); want != got {
			t.Fatalf("unexpected channel for %d MHz:\n- want: %d\n-  got: %d",
				tt.freq, want, got)
		}
	}
}

func TestChannelToFrequency(t *testing.T) {
	tests := []struct {
		channel int
		band    int
		freq    int
	}{
		{channel: 1, band: Band2GHz, freq: 2412},
		{channel: 13, band: Band2GHz, freq: 2472},
		{channel: 14, band: Band2GHz, freq: 2484},
		{channel: 15, band: Band2GHz, freq: 0},
		{channel: 36, band: Band5GHz, freq: 5180},
		{channel: 184, band: Band5GHz, freq: 4920},
		{channel: 1, band: Band60GHz, freq: 58320},
		{channel: 5, band: Band60GHz, freq: 0},
		{channel: 0, band: Band2GHz, freq: 0},
		{channel: -1, band: Band5GHz, freq: 0},
	}

	for _, tt := range tests {
		if want, got := tt.freq, ChannelToFrequency(tt.channel, tt.band); want != got {
			t.Fatalf("unexpected frequency for channel %d, band %d:\n- want: %d\n-  got: %d",
				tt.channel, tt.band, want, got)
		}
	}
}

func Test_parseIEs(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		ies  []ie
		err  error
	}{
		{
			name: "empty",
		},
		{
			name: "too short",
			b:    []byte{0x00},
			err:  errInvalidIE,
		},
		{
			name: "length too long",
			b:    []byte{0x00, 0xff, 0x00},
			err:  errInvalidIE,
		},
		{
			name: "OK one",
			b:    []byte{0x00, 0x03, 'f', 'o', 'o'},
			ies: []ie{{
				ID:   0,
				Data: []byte("foo"),
			}},
		},
		{
			name: "OK three",
			b: []byte{
				0x00, 0x03, 'f', 'o', 'o',
				0x01, 0x00,
				0x02, 0x06, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66,
			},
			ies: []ie{
				{
					ID:   0,
					Data: []byte("foo"),
				},
				{
					ID:   1,
					Data: []byte{},
				},
				{
					ID:   2,
					Data: []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ies, err := parseIEs(tt.b)

			if want, got := tt.err, err; want != got {
				t.Fatalf("unexpected error:\n- want: %v\n-  got: %v",
					want, got)
			}
			if err != nil {
				t.Logf("err: %v", err)
				return
			}

			if want, got := tt.ies, ies; !reflect.DeepEqual(want, got) {
				t.Fatalf("unexpected ies:\n- want: %v\n-  got: %v",
					want, got)
			}
		})
	}
}
