//go:build linux
// +build linux

package wifi

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/sys/unix"

	"github.com/nlquery/wifi/internal/nl80211"
)

var (
	ErrNotSupported      = errors.New("not supported")
	ErrScanGroupNotFound = errors.New("scan multicast group unavailable")
	ErrScanAborted       = errors.New("scan aborted by the kernel")
)

// A transport is the generic netlink connection surface the client drives:
// family resolution, request transmission, and the reply stream.
// *genetlink.Conn implements it; tests substitute scripted fakes.
type transport interface {
	Close() error
	GetFamily(name string) (genetlink.Family, error)
	Send(m genetlink.Message, family uint16, flags netlink.HeaderFlags) (netlink.Message, error)
	Receive() ([]genetlink.Message, []netlink.Message, error)
	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

var _ transport = &genetlink.Conn{}

// A client is the Linux implementation of osClient, which makes use of
// netlink, generic netlink, and nl80211 to provide access to WiFi device
// statistics and actions.
type client struct {
	t             transport
	familyID      uint16
	familyVersion uint8

	// scan is used to synchronize access to the Scan method.
	scan sync.Mutex
}

var _ osClient = &client{}

// newClient dials a generic netlink connection and verifies that nl80211
// is available for use by this package.
func newClient() (*client, error) {
	c, err := genetlink.Dial(nil)
	if err != nil {
		return nil, err
	}

	// Make a best effort to apply the strict options set to provide better
	// errors and validation. We don't apply Strict in the constructor because
	// this library is widely used on a range of kernels and we can't guarantee
	// it will always work on older kernels.
	for _, o := range []netlink.ConnOption{
		netlink.ExtendedAcknowledge,
		netlink.GetStrictCheck,
	} {
		_ = c.SetOption(o, true)
	}

	return initClient(c)
}

// initClient resolves the nl80211 family once and wraps t with its numeric
// ID and version.
func initClient(t transport) (*client, error) {
	family, err := t.GetFamily(unix.NL80211_GENL_NAME)
	if err != nil {
		// Ensure the genl socket is closed on error to avoid leaking file
		// descriptors.
		_ = t.Close()
		return nil, err
	}

	return &client{
		t:             t,
		familyID:      family.ID,
		familyVersion: family.Version,
	}, nil
}

// Close closes the client's generic netlink connection.
func (c *client) Close() error { return c.t.Close() }

// Interfaces requests that nl80211 dump a list of all WiFi interfaces
// present on this system.
func (c *client) Interfaces() ([]*Interface, error) {
	// Interface enumeration is global, so the request carries no scoping
	// attributes at all.
	msgs, err := c.dump(unix.NL80211_CMD_GET_INTERFACE, nil, nil)
	if err != nil {
		return nil, err
	}

	ifis := make([]*Interface, 0, len(msgs))
	for _, m := range msgs {
		var ifi Interface
		if err := decodeAttributes(m.Data, ifi.decode); err != nil {
			return nil, err
		}

		ifis = append(ifis, &ifi)
	}

	return ifis, nil
}

// StationInfo requests station statistics for the interface with the given
// index.
func (c *client) StationInfo(ifindex int32) (*Station, error) {
	msgs, err := c.dump(unix.NL80211_CMD_GET_STATION, &ifindex, nil)
	if err != nil {
		return nil, err
	}

	// Later messages overwrite earlier ones: for a single-record query the
	// kernel's most recent word wins. A dump with no data messages yields
	// a record with every field absent.
	station := &Station{}
	for _, m := range msgs {
		var s Station
		if err := decodeAttributes(m.Data, s.decode); err != nil {
			return nil, err
		}

		station = &s
	}

	return station, nil
}

// ScanResults requests the contents of the scan result table for the
// interface with the given index.
func (c *client) ScanResults(ifindex int32) ([]*BSS, error) {
	msgs, err := c.dump(unix.NL80211_CMD_GET_SCAN, &ifindex, nil)
	if err != nil {
		return nil, err
	}

	bsss := make([]*BSS, 0, len(msgs))
	for _, m := range msgs {
		var bss BSS
		if err := decodeAttributes(m.Data, bss.decode); err != nil {
			return nil, err
		}

		bsss = append(bsss, &bss)
	}

	return bsss, nil
}

// AssociatedBSS requests the BSS the interface with the given index is
// currently joined to.
func (c *client) AssociatedBSS(ifindex int32) (*BSS, error) {
	bsss, err := c.ScanResults(ifindex)
	if err != nil {
		return nil, err
	}

	for _, bss := range bsss {
		// Only the joined BSS carries a status attribute.
		if bss.Status != nil {
			return bss, nil
		}
	}

	return nil, os.ErrNotExist
}

// SurveyInfo requests channel survey data for the interface with the given
// index.
func (c *client) SurveyInfo(ifindex int32) ([]*Survey, error) {
	msgs, err := c.dump(unix.NL80211_CMD_GET_SURVEY, &ifindex, nil)
	if err != nil {
		return nil, err
	}

	surveys := make([]*Survey, 0, len(msgs))
	for _, m := range msgs {
		var s Survey
		if err := decodeAttributes(m.Data, s.decode); err != nil {
			return nil, err
		}

		surveys = append(surveys, &s)
	}

	return surveys, nil
}

// Connect starts connecting the interface to the specified ssid.
func (c *client) Connect(ifindex int32, ssid string) error {
	return c.command(unix.NL80211_CMD_CONNECT, &ifindex, func(ae *netlink.AttributeEncoder) {
		ae.Bytes(unix.NL80211_ATTR_SSID, []byte(ssid))
		ae.Uint32(unix.NL80211_ATTR_AUTH_TYPE, unix.NL80211_AUTHTYPE_OPEN_SYSTEM)
	})
}

// ConnectWPAPSK starts connecting the interface to the specified SSID using
// WPA2-PSK. The 4-way handshake is offloaded to the device, so the device
// must support doing that for station-mode PSK connections.
func (c *client) ConnectWPAPSK(ifindex int32, ssid, psk string) error {
	support, err := c.checkExtFeature(ifindex, unix.NL80211_EXT_FEATURE_4WAY_HANDSHAKE_STA_PSK)
	if err != nil {
		return err
	}
	if !support {
		return ErrNotSupported
	}

	return c.command(unix.NL80211_CMD_CONNECT, &ifindex, func(ae *netlink.AttributeEncoder) {
		ae.Bytes(unix.NL80211_ATTR_SSID, []byte(ssid))
		ae.Uint32(unix.NL80211_ATTR_WPA_VERSIONS, unix.NL80211_WPA_VERSION_2)
		ae.Uint32(unix.NL80211_ATTR_CIPHER_SUITE_GROUP, nl80211.CipherSuiteCCMP)
		ae.Uint32(unix.NL80211_ATTR_CIPHER_SUITES_PAIRWISE, nl80211.CipherSuiteCCMP)
		ae.Uint32(unix.NL80211_ATTR_AKM_SUITES, nl80211.AKMSuitePSK)
		ae.Flag(unix.NL80211_ATTR_WANT_1X_4WAY_HS, true)
		ae.Bytes(
			unix.NL80211_ATTR_PMK,
			wpaPassphrase([]byte(ssid), []byte(psk)),
		)
		ae.Uint32(unix.NL80211_ATTR_AUTH_TYPE, unix.NL80211_AUTHTYPE_OPEN_SYSTEM)
	})
}

// Disconnect disconnects the interface.
func (c *client) Disconnect(ifindex int32) error {
	return c.command(unix.NL80211_CMD_DISCONNECT, &ifindex, nil)
}

// wpaPassphrase computes a WPA passphrase given an SSID and preshared key.
func wpaPassphrase(ssid, psk []byte) []byte {
	return pbkdf2.Key(psk, ssid, 4096, 32, sha1.New)
}

// Scan requests that nl80211 perform a scan for new access points using
// the interface with the given index, and waits for the scan to finish.
//
// Use context.WithDeadline to set a timeout.
//
// If a scan is already in progress, the kernel returns EBUSY through
// ErrProtocol.
func (c *client) Scan(ctx context.Context, ifindex int32) error {
	c.scan.Lock()
	defer c.scan.Unlock()

	// A second connection joins the scan multicast group, so completion
	// notifications are not interleaved with query replies on the main
	// socket.
	conn, err := genetlink.Dial(&netlink.Config{Strict: true})
	if err != nil {
		return err
	}

	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}

	family, err := conn.GetFamily(unix.NL80211_GENL_NAME)
	if err != nil {
		return err
	}

	var id uint32
	for _, group := range family.Groups {
		if group.Name == unix.NL80211_MULTICAST_GROUP_SCAN {
			if err := conn.JoinGroup(group.ID); err != nil {
				return err
			}

			id = group.ID
			break
		}
	}

	if id == 0 {
		return ErrScanGroupNotFound
	}

	// Leave group on exit. Err is non-actionable.
	defer func() { _ = conn.LeaveGroup(id) }()

	ae := netlink.NewAttributeEncoder()
	ae.Uint32(unix.NL80211_ATTR_IFINDEX, uint32(ifindex))
	ae.Nested(unix.NL80211_ATTR_SCAN_SSIDS, func(nae *netlink.AttributeEncoder) error {
		// A single wildcard SSID requests an active scan of all networks.
		nae.Bytes(unix.NL80211_SCHED_SCAN_MATCH_ATTR_SSID, nlenc.Bytes(""))
		return nil
	})

	data, err := ae.Encode()
	if err != nil {
		return err
	}

	req := genetlink.Message{
		Header: genetlink.Header{
			Command: unix.NL80211_CMD_TRIGGER_SCAN,
			Version: family.Version,
		},
		Data: data,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- awaitScanResult(ctx, conn, ifindex)
	}()

	if _, err = conn.Send(req, family.ID, netlink.Request|netlink.Acknowledge); err != nil {
		cancel()
	}

	return errors.Join(err, <-result)
}

// awaitScanResult consumes multicast notifications from conn until the
// kernel reports a finished or aborted scan for the given interface.
//
// The caller should not receive on the given connection and is responsible
// for closing it.
func awaitScanResult(ctx context.Context, conn *genetlink.Conn, ifindex int32) error {
	for ctx.Err() == nil {
		msgs, _, err := conn.Receive()
		if err != nil {
			return err
		}

		// Test for context cancellation and abandon work if so.
		if ctx.Err() != nil {
			break
		}

		for _, m := range msgs {
			switch m.Header.Command {
			case unix.NL80211_CMD_SCAN_ABORTED:
				return ErrScanAborted
			case unix.NL80211_CMD_NEW_SCAN_RESULTS:
				// Notifications carry interface attributes; only a result
				// for the scanned interface ends the wait.
				var ifi Interface
				if err := decodeAttributes(m.Data, ifi.decode); err != nil {
					return err
				}

				if ifi.Index == nil || *ifi.Index != ifindex {
					continue
				}

				return nil
			}
		}
	}

	return ctx.Err()
}

// SetDeadline sets the read and write deadlines associated with the connection.
func (c *client) SetDeadline(t time.Time) error {
	return c.t.SetDeadline(t)
}

// SetReadDeadline sets the read deadline associated with the connection.
func (c *client) SetReadDeadline(t time.Time) error {
	return c.t.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline associated with the connection.
func (c *client) SetWriteDeadline(t time.Time) error {
	return c.t.SetWriteDeadline(t)
}

// checkExtFeature checks if the physical device behind the interface with
// the given index supports an extended feature.
func (c *client) checkExtFeature(ifindex int32, feature uint) (bool, error) {
	msgs, err := c.dump(unix.NL80211_CMD_GET_WIPHY, &ifindex, func(ae *netlink.AttributeEncoder) {
		ae.Flag(unix.NL80211_ATTR_SPLIT_WIPHY_DUMP, true)
	})
	if err != nil {
		return false, err
	}

	var features []byte
	for _, m := range msgs {
		if err := decodeAttributes(m.Data, func(ad *netlink.AttributeDecoder) error {
			for ad.Next() {
				if ad.Type() == unix.NL80211_ATTR_EXT_FEATURES {
					features = ad.Bytes()
				}
			}
			return ad.Err()
		}); err != nil {
			return false, err
		}

		if features != nil {
			break
		}
	}

	if feature/8 >= uint(len(features)) {
		return false, nil
	}

	return features[feature/8]&(1<<(feature%8)) != 0, nil
}

// request builds the envelope for cmd, scoped to one interface when
// ifindex is non-nil. params may be nil; it applies optional attributes.
func (c *client) request(cmd uint8, ifindex *int32, params func(ae *netlink.AttributeEncoder)) (genetlink.Message, error) {
	ae := netlink.NewAttributeEncoder()
	if ifindex != nil {
		ae.Uint32(unix.NL80211_ATTR_IFINDEX, uint32(*ifindex))
	}
	if params != nil {
		params(ae)
	}

	b, err := ae.Encode()
	if err != nil {
		return genetlink.Message{}, err
	}

	return genetlink.Message{
		Header: genetlink.Header{
			Command: cmd,
			Version: c.familyVersion,
		},
		Data: b,
	}, nil
}

// dump issues cmd as a dump request and collects the data messages of its
// reply stream.
func (c *client) dump(cmd uint8, ifindex *int32, params func(ae *netlink.AttributeEncoder)) ([]genetlink.Message, error) {
	req, err := c.request(cmd, ifindex, params)
	if err != nil {
		return nil, err
	}

	if _, err := c.t.Send(req, c.familyID, netlink.Request|netlink.Dump); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSend, err)
	}

	return c.drain()
}

// command issues cmd as an acknowledged request that carries no reply
// payload.
func (c *client) command(cmd uint8, ifindex *int32, params func(ae *netlink.AttributeEncoder)) error {
	req, err := c.request(cmd, ifindex, params)
	if err != nil {
		return err
	}

	if _, err := c.t.Send(req, c.familyID, netlink.Request|netlink.Acknowledge); err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}

	_, err = c.drain()
	return err
}

// drain consumes the reply stream for the one outstanding request,
// classifying every message before its payload is interpreted: no-ops are
// skipped, an explicit error aborts the request with no partial results,
// and a done marker or acknowledgement ends it.
//
// The transport blocks until the kernel has replied in full and may have
// consumed multipart framing itself, so a batch that ends without a
// terminal marker is also a complete reply.
func (c *client) drain() ([]genetlink.Message, error) {
	gmsgs, nmsgs, err := c.t.Receive()
	if err != nil {
		// The transport surfaces explicit kernel error replies as errno
		// values; anything else is a failure of the stream itself.
		var errno syscall.Errno
		if errors.As(err, &errno) {
			return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrReceive, err)
	}

	var msgs []genetlink.Message
	for i, nm := range nmsgs {
		switch nm.Header.Type {
		case netlink.Noop:
			// Skipped without affecting the result.
		case netlink.Error:
			code, err := errorCode(nm)
			if err != nil {
				return nil, err
			}
			if code == 0 {
				// An explicit acknowledgement, the successful end of an
				// acknowledged request.
				return msgs, nil
			}

			return nil, fmt.Errorf("%w: %v", ErrProtocol, syscall.Errno(-code))
		case netlink.Done:
			return msgs, nil
		default:
			msgs = append(msgs, gmsgs[i])
		}
	}

	return msgs, nil
}

// errorCode extracts the error number carried by a netlink error message.
func errorCode(m netlink.Message) (int32, error) {
	if len(m.Data) < 4 {
		return 0, fmt.Errorf("%w: truncated error message", ErrProtocol)
	}

	return nlenc.Int32(m.Data[:4]), nil
}

// decodeAttributes runs fn over an attribute decoder for b. Any decoder
// failure, including a fixed-width payload of the wrong length, surfaces
// as ErrMalformedAttribute.
func decodeAttributes(b []byte, fn func(ad *netlink.AttributeDecoder) error) error {
	ad, err := netlink.NewAttributeDecoder(b)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAttribute, err)
	}

	if err := fn(ad); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAttribute, err)
	}

	return nil
}

// decode populates ifi from a flat nl80211 attribute sequence. Tags this
// package does not recognize are ignored; if the kernel repeats a tag, the
// last occurrence wins.
func (ifi *Interface) decode(ad *netlink.AttributeDecoder) error {
	for ad.Next() {
		switch ad.Type() {
		case unix.NL80211_ATTR_IFINDEX:
			v := int32(ad.Uint32())
			ifi.Index = &v
		case unix.NL80211_ATTR_IFTYPE:
			// NOTE: InterfaceType copies the ordering of nl80211's interface
			// type constants. This may not be the case on other operating
			// systems.
			v := InterfaceType(ad.Uint32())
			ifi.Type = &v
		case unix.NL80211_ATTR_SSID:
			ifi.SSID = ad.Bytes()
		case unix.NL80211_ATTR_MAC:
			ifi.HardwareAddr = net.HardwareAddr(ad.Bytes())
		case unix.NL80211_ATTR_IFNAME:
			ifi.Name = ad.Bytes()
		case unix.NL80211_ATTR_WIPHY_FREQ:
			v := ad.Uint32()
			ifi.Frequency = &v
		case unix.NL80211_ATTR_WIPHY_CHANNEL_TYPE:
			v := ad.Uint32()
			ifi.ChannelType = &v
		case unix.NL80211_ATTR_CHANNEL_WIDTH:
			v := ad.Uint32()
			ifi.ChannelWidth = &v
		case unix.NL80211_ATTR_CENTER_FREQ1:
			v := ad.Uint32()
			ifi.CenterFreq1 = &v
		case unix.NL80211_ATTR_CENTER_FREQ2:
			v := ad.Uint32()
			ifi.CenterFreq2 = &v
		case unix.NL80211_ATTR_WIPHY_TX_POWER_LEVEL:
			v := ad.Uint32()
			ifi.TransmitPower = &v
		case unix.NL80211_ATTR_WIPHY:
			v := ad.Uint32()
			ifi.PHY = &v
		case unix.NL80211_ATTR_WDEV:
			v := ad.Uint64()
			ifi.Device = &v
		}
	}

	return ad.Err()
}

// decode populates s from one station message's attribute sequence.
func (s *Station) decode(ad *netlink.AttributeDecoder) error {
	for ad.Next() {
		switch ad.Type() {
		case unix.NL80211_ATTR_IFINDEX:
			v := int32(ad.Uint32())
			s.InterfaceIndex = &v
		case unix.NL80211_ATTR_MAC:
			s.HardwareAddr = net.HardwareAddr(ad.Bytes())
		case unix.NL80211_ATTR_STA_INFO:
			ad.Nested(s.decodeInfo)
		}
	}

	return ad.Err()
}

// decodeInfo populates s's statistics from the nested station info
// attributes.
func (s *Station) decodeInfo(ad *netlink.AttributeDecoder) error {
	for ad.Next() {
		switch ad.Type() {
		case unix.NL80211_STA_INFO_CONNECTED_TIME:
			v := ad.Uint32()
			s.ConnectedTime = &v
		case unix.NL80211_STA_INFO_INACTIVE_TIME:
			v := ad.Uint32()
			s.InactiveTime = &v
		case unix.NL80211_STA_INFO_RX_BYTES:
			v := ad.Uint32()
			s.ReceivedBytes = &v
		case unix.NL80211_STA_INFO_TX_BYTES:
			v := ad.Uint32()
			s.TransmittedBytes = &v
		case unix.NL80211_STA_INFO_RX_PACKETS:
			v := ad.Uint32()
			s.ReceivedPackets = &v
		case unix.NL80211_STA_INFO_TX_PACKETS:
			v := ad.Uint32()
			s.TransmittedPackets = &v
		case unix.NL80211_STA_INFO_SIGNAL:
			// Signal strength is a single byte carrying a signed dBm value,
			// see station.c in iw.
			v := int8(ad.Uint8())
			s.Signal = &v
		case unix.NL80211_STA_INFO_SIGNAL_AVG:
			v := int8(ad.Uint8())
			s.SignalAverage = &v
		case unix.NL80211_STA_INFO_TX_RETRIES:
			v := ad.Uint32()
			s.TransmitRetries = &v
		case unix.NL80211_STA_INFO_TX_FAILED:
			v := ad.Uint32()
			s.TransmitFailed = &v
		case unix.NL80211_STA_INFO_BEACON_LOSS:
			v := ad.Uint32()
			s.BeaconLoss = &v
		}
	}

	return ad.Err()
}

// decode populates b from one scan result message's attribute sequence.
func (b *BSS) decode(ad *netlink.AttributeDecoder) error {
	for ad.Next() {
		switch ad.Type() {
		case unix.NL80211_ATTR_BSS:
			ad.Nested(b.decodeInfo)
		}
	}

	return ad.Err()
}

// decodeInfo populates b from the nested BSS attributes.
func (b *BSS) decodeInfo(ad *netlink.AttributeDecoder) error {
	for ad.Next() {
		switch ad.Type() {
		case unix.NL80211_BSS_BSSID:
			b.BSSID = net.HardwareAddr(ad.Bytes())
		case unix.NL80211_BSS_FREQUENCY:
			v := ad.Uint32()
			b.Frequency = &v
		case unix.NL80211_BSS_BEACON_INTERVAL:
			v := ad.Uint16()
			b.BeaconInterval = &v
		case unix.NL80211_BSS_SEEN_MS_AGO:
			v := ad.Uint32()
			b.LastSeen = &v
		case unix.NL80211_BSS_STATUS:
			// NOTE: BSSStatus copies the ordering of nl80211's BSS status
			// constants. This may not be the case on other operating systems.
			v := BSSStatus(ad.Uint32())
			b.Status = &v
		case unix.NL80211_BSS_INFORMATION_ELEMENTS:
			b.InformationElements = ad.Bytes()
		}
	}

	return ad.Err()
}

// decode populates s from one survey message's attribute sequence.
func (s *Survey) decode(ad *netlink.AttributeDecoder) error {
	for ad.Next() {
		switch ad.Type() {
		case unix.NL80211_ATTR_SURVEY_INFO:
			ad.Nested(s.decodeInfo)
		}
	}

	return ad.Err()
}

// decodeInfo populates s from the nested survey attributes.
func (s *Survey) decodeInfo(ad *netlink.AttributeDecoder) error {
	for ad.Next() {
		switch ad.Type() {
		case unix.NL80211_SURVEY_INFO_FREQUENCY:
			v := ad.Uint32()
			s.Frequency = &v
		case unix.NL80211_SURVEY_INFO_NOISE:
			v := int8(ad.Uint8())
			s.Noise = &v
		case unix.NL80211_SURVEY_INFO_IN_USE:
			// Flag attribute; presence is the value.
			s.InUse = true
		case unix.NL80211_SURVEY_INFO_TIME:
			v := ad.Uint64()
			s.ChannelTime = &v
		case unix.NL80211_SURVEY_INFO_TIME_BUSY:
			v := ad.Uint64()
			s.ChannelTimeBusy = &v
		case unix.NL80211_SURVEY_INFO_TIME_EXT_BUSY:
			v := ad.Uint64()
			s.ChannelTimeExtBusy = &v
		case unix.NL80211_SURVEY_INFO_TIME_RX:
			v := ad.Uint64()
			s.ChannelTimeRx = &v
		case unix.NL80211_SURVEY_INFO_TIME_TX:
			v := ad.Uint64()
			s.ChannelTimeTx = &v
		case unix.NL80211_SURVEY_INFO_TIME_SCAN:
			v := ad.Uint64()
			s.ChannelTimeScan = &v
		}
	}

	return ad.Err()
}
