// Package metrics counts flow outcomes with lock-free counters. Exporters
// read point-in-time snapshots; nothing here blocks a flow.
package metrics

import "sync/atomic"

// ID indexes one counter.
type ID uint16

const (
	RegisterSuccess ID = iota
	RegisterDuplicate
	LoginSuccess
	LoginFailure
	LoginDeactivated
	RefreshSuccess
	RefreshFailure
	RefreshReuseDetected
	RefreshAgentMismatch
	Logout
	SessionCreated
	SessionRevoked
	SessionsSwept
	OtpIssued
	OtpRateLimited
	OtpDailyLimited
	OtpVerifySuccess
	OtpVerifyFailure
	PasswordChanged
	PasswordReset
	EmailVerified
	EmailChanged
	AccountDeactivated
	NotifyFailure
	idCount
)

const cacheLineSize = 64

// paddedCounter keeps hot counters on separate cache lines.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the counter set. A nil or disabled Metrics accepts Inc calls
// and discards them.
type Metrics struct {
	enabled  bool
	counters [idCount]paddedCounter
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Counters map[ID]uint64
}

func New(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id ID) {
	m.Add(id, 1)
}

func (m *Metrics) Add(id ID, n uint64) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{Counters: map[ID]uint64{}}
	}

	s := Snapshot{Counters: make(map[ID]uint64, int(idCount))}
	for id := ID(0); id < idCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
