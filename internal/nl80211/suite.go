// Package nl80211 carries nl80211 protocol constants that are not exported
// by golang.org/x/sys/unix.
package nl80211

// Cipher and AKM suite selectors from IEEE 802.11-2020, section 9.4.2.24.
// The kernel accepts them as little-endian u32 attributes.
const (
	// CipherSuiteCCMP is the CCMP-128 cipher suite selector (00-0F-AC:4).
	CipherSuiteCCMP = 0x000FAC04

	// AKMSuitePSK is the PSK authentication and key management suite
	// selector (00-0F-AC:2).
	AKMSuitePSK = 0x000FAC02
)
