package offload

import (
	"io"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// Register all transports (tcp, ipc, inproc, ws)
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// Socket is the minimal message socket the publisher and subscriber need.
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
}

// ListenSocket is a socket that binds to an address.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// SubscribeSocket is a SUB socket that connects and filters by topic.
type SubscribeSocket interface {
	Socket
	Dial(addr string) error
	Subscribe(topic []byte) error
}

// SocketFactory creates sockets. Tests substitute in-memory sockets.
type SocketFactory interface {
	NewPubSocket() (ListenSocket, error)
	NewSubSocket() (SubscribeSocket, error)
}

type mangosSocket struct {
	sock mangos.Socket
}

func (s *mangosSocket) Send(data []byte) error { return s.sock.Send(data) }

func (s *mangosSocket) Recv() ([]byte, error) { return s.sock.Recv() }

func (s *mangosSocket) Close() error { return s.sock.Close() }

func (s *mangosSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionRecvDeadline, d)
}

func (s *mangosSocket) Listen(addr string) error { return s.sock.Listen(addr) }

func (s *mangosSocket) Dial(addr string) error { return s.sock.Dial(addr) }

func (s *mangosSocket) Subscribe(topic []byte) error {
	return s.sock.SetOption(mangos.OptionSubscribe, topic)
}

// MangosFactory creates mangos (nanomsg) PUB/SUB sockets.
type MangosFactory struct{}

// NewMangosFactory creates a new mangos socket factory.
func NewMangosFactory() *MangosFactory {
	return &MangosFactory{}
}

func (f *MangosFactory) NewPubSocket() (ListenSocket, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, err
	}
	return &mangosSocket{sock: sock}, nil
}

func (f *MangosFactory) NewSubSocket() (SubscribeSocket, error) {
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, err
	}
	return &mangosSocket{sock: sock}, nil
}

var _ SocketFactory = (*MangosFactory)(nil)
