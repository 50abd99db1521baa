//go:build !linux
// +build !linux

package wifi

import (
	"context"
	"time"
)

var _ osClient = &client{}

// A client is the no-op implementation of a netlink sockets connection.
type client struct{}

func newClient() (*client, error) { return nil, errUnimplemented }

func (*client) Close() error { return errUnimplemented }
func (*client) Interfaces() ([]*Interface, error) { return nil, errUnimplemented }
func (*client) StationInfo(_ int32) (*Station, error) { return nil, errUnimplemented }
func (*client) ScanResults(_ int32) ([]*BSS, error) { return nil, errUnimplemented }
func (*client) AssociatedBSS(_ int32) (*BSS, error) { return nil, errUnimplemented }
func (*client) SurveyInfo(_ int32) ([]*Survey, error) { return nil, errUnimplemented }
func (*client) Connect(_ int32, _ string) error { return errUnimplemented }
func (*client) ConnectWPAPSK(_ int32, _, _ string) error { return errUnimplemented }
func (*client) Disconnect(_ int32) error { return errUnimplemented }
func (*client) Scan(_ context.Context, _ int32) error { return errUnimplemented }
func (*client) SetDeadline(_ time.Time) error { return errUnimplemented }
func (*client) SetReadDeadline(_ time.Time) error { return errUnimplemented }
func (*client) SetWriteDeadline(_ time.Time) error { return errUnimplemented }
