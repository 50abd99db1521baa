package wifi

import (
	"context"
	"time"
)

// An osClient is the operating system-specific implementation of Client.
type osClient interface {
	Close() error
	Interfaces() ([]*Interface, error)
	StationInfo(ifindex int32) (*Station, error)
	ScanResults(ifindex int32) ([]*BSS, error)
	AssociatedBSS(ifindex int32) (*BSS, error)
	SurveyInfo(ifindex int32) ([]*Survey, error)
	Connect(ifindex int32, ssid string) error
	ConnectWPAPSK(ifindex int32, ssid, psk string) error
	Disconnect(ifindex int32) error
	Scan(ctx context.Context, ifindex int32) error
	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// A Client is a type which can access WiFi device statistics and actions
// using operating system-specific operations.
//
// A Client owns a single netlink connection. Replies are correlated to
// requests only by their order on that connection, so a Client must not be
// used for concurrent queries; either serialize calls or use one Client
// per goroutine.
type Client struct {
	c *client
}

// New creates a new Client.
func New() (*Client, error) {
	c, err := newClient()
	if err != nil {
		return nil, err
	}

	return &Client{
		c: c,
	}, nil
}

// Close releases resources used by a Client.
func (c *Client) Close() error {
	return c.c.Close()
}

// Interfaces returns a list of the system's WiFi network interfaces.
func (c *Client) Interfaces() ([]*Interface, error) {
	return c.c.Interfaces()
}

// StationInfo retrieves station statistics for the WiFi interface with the
// given index.
//
// If the kernel reports several stations, the most recently reported one
// wins. If it reports none, a Station with every field absent is returned
// instead of an error.
func (c *Client) StationInfo(ifindex int32) (*Station, error) {
	return c.c.StationInfo(ifindex)
}

// ScanResults retrieves the scan result table of the WiFi interface with
// the given index, one BSS per visible network, in the order the kernel
// reported them. Use Scan to refresh the table first.
func (c *Client) ScanResults(ifindex int32) ([]*BSS, error) {
	return c.c.ScanResults(ifindex)
}

// AssociatedBSS retrieves the BSS the WiFi interface with the given index
// is currently joined to. If there is none, an error compatible with
// os.ErrNotExist is returned.
func (c *Client) AssociatedBSS(ifindex int32) (*BSS, error) {
	return c.c.AssociatedBSS(ifindex)
}

// SurveyInfo retrieves channel survey data for the WiFi interface with the
// given index, one Survey per surveyed channel.
func (c *Client) SurveyInfo(ifindex int32) ([]*Survey, error) {
	return c.c.SurveyInfo(ifindex)
}

// Connect starts connecting the interface with the given index to the
// specified ssid, using open system authentication.
func (c *Client) Connect(ifindex int32, ssid string) error {
	return c.c.Connect(ifindex, ssid)
}

// ConnectWPAPSK starts connecting the interface with the given index to
// the specified ssid using WPA2-PSK. It returns ErrNotSupported if the
// device cannot offload the 4-way handshake.
func (c *Client) ConnectWPAPSK(ifindex int32, ssid, psk string) error {
	return c.c.ConnectWPAPSK(ifindex, ssid, psk)
}

// Disconnect disconnects the interface with the given index.
func (c *Client) Disconnect(ifindex int32) error {
	return c.c.Disconnect(ifindex)
}

// Scan requests that the interface with the given index scans for access
// points, and blocks until the scan completed or ctx is done. This process
// is long running and uses a separate connection to nl80211. Use
// ScanResults to retrieve the refreshed table.
func (c *Client) Scan(ctx context.Context, ifindex int32) error {
	return c.c.Scan(ctx, ifindex)
}

// SetDeadline sets the read and write deadlines associated with the connection.
func (c *Client) SetDeadline(t time.Time) error {
	return c.c.SetDeadline(t)
}

// SetReadDeadline sets the read deadline associated with the connection.
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.c.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline associated with the connection.
func (c *Client) SetWriteDeadline(t time.Time) error {
	return c.c.SetWriteDeadline(t)
}
