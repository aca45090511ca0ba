// Package gateway exposes the instrument engines over an HTTP JSON API.
package gateway

import (
	"errors"
	"slices"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-geocom/geocom"
	"github.com/arloliu/go-geocom/gsi"
	"github.com/arloliu/go-geocom/session"
	"github.com/arloliu/go-geocom/transport"
)

// Protocol names of the registered engines.
const (
	ProtocolGeoCom = "geocom"
	ProtocolGSI    = "gsi"
)

// ErrNoInstrument is returned when no engine serves the requested protocol.
var ErrNoInstrument = errors.New("gateway: no instrument for protocol")

// Instrument is one engine served by the gateway.
type Instrument struct {
	Protocol string
	GeoCom   *geocom.Client
	GSI      *gsi.Client
}

func (i *Instrument) session() *session.Session {
	if i.GeoCom != nil {
		return i.GeoCom.Session()
	}

	return i.GSI.Session()
}

// Status is the health view of an instrument.
type Status struct {
	Protocol string        `json:"protocol"`
	State    string        `json:"state"`
	Family   string        `json:"family,omitempty"`
	Width    string        `json:"width,omitempty"`
	Metrics  MetricsStatus `json:"metrics"`
}

// MetricsStatus is a snapshot of the transport counters.
type MetricsStatus struct {
	SendCount     uint64 `json:"send_count"`
	ReceiveCount  uint64 `json:"receive_count"`
	TimeoutCount  uint64 `json:"timeout_count"`
	ErrorCount    uint64 `json:"error_count"`
	BytesSent     uint64 `json:"bytes_sent"`
	BytesReceived uint64 `json:"bytes_received"`
}

func metricsOf(m *transport.Metrics) MetricsStatus {
	return MetricsStatus{
		SendCount:     m.SendCount.Load(),
		ReceiveCount:  m.ReceiveCount.Load(),
		TimeoutCount:  m.TimeoutCount.Load(),
		ErrorCount:    m.ErrorCount.Load(),
		BytesSent:     m.BytesSent.Load(),
		BytesReceived: m.BytesReceived.Load(),
	}
}

// Status returns the current health view.
func (i *Instrument) Status() Status {
	sess := i.session()
	st := Status{
		Protocol: i.Protocol,
		State:    sess.State().String(),
		Metrics:  metricsOf(sess.Transport().Metrics()),
	}
	if i.GeoCom != nil {
		st.Family = string(i.GeoCom.Family())
	}
	if i.GSI != nil {
		st.Width = i.GSI.Width().String()
	}

	return st
}

// Registry holds the engines by protocol. It is safe for concurrent use.
type Registry struct {
	instruments *xsync.MapOf[string, *Instrument]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{instruments: xsync.NewMapOf[string, *Instrument]()}
}

// AddGeoCom registers a GeoCom engine, replacing any previous one.
func (r *Registry) AddGeoCom(c *geocom.Client) {
	r.instruments.Store(ProtocolGeoCom, &Instrument{Protocol: ProtocolGeoCom, GeoCom: c})
}

// AddGSI registers a GSI Online engine, replacing any previous one.
func (r *Registry) AddGSI(c *gsi.Client) {
	r.instruments.Store(ProtocolGSI, &Instrument{Protocol: ProtocolGSI, GSI: c})
}

// Remove unregisters the engine of protocol.
func (r *Registry) Remove(protocol string) {
	r.instruments.Delete(protocol)
}

// GeoCom returns the registered GeoCom engine.
func (r *Registry) GeoCom() (*geocom.Client, error) {
	inst, ok := r.instruments.Load(ProtocolGeoCom)
	if !ok {
		return nil, ErrNoInstrument
	}

	return inst.GeoCom, nil
}

// GSI returns the registered GSI Online engine.
func (r *Registry) GSI() (*gsi.Client, error) {
	inst, ok := r.instruments.Load(ProtocolGSI)
	if !ok {
		return nil, ErrNoInstrument
	}

	return inst.GSI, nil
}

// Statuses returns the health view of every engine, sorted by protocol.
func (r *Registry) Statuses() []Status {
	var out []Status
	r.instruments.Range(func(_ string, inst *Instrument) bool {
		out = append(out, inst.Status())
		return true
	})
	slices.SortFunc(out, func(a, b Status) int { return strings.Compare(a.Protocol, b.Protocol) })

	return out
}

// Close closes every engine and empties the registry.
func (r *Registry) Close() error {
	var errs []error
	r.instruments.Range(func(protocol string, inst *Instrument) bool {
		var err error
		if inst.GeoCom != nil {
			err = inst.GeoCom.Close()
		} else {
			err = inst.GSI.Close()
		}
		if err != nil {
			errs = append(errs, err)
		}
		r.instruments.Delete(protocol)

		return true
	})

	return errors.Join(errs...)
}
