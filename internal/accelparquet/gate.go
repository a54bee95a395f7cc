// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package accelparquet

import (
	"fmt"
	"log/slog"
)

// Decision is the gate's verdict: accepted, or rejected with a reason.
// Callers can only branch on Accepted(), so proceeding on a rejection has
// no accidental path.
type Decision struct {
	reason   string
	accepted bool
}

// Accept returns an accepting decision.
func Accept() Decision {
	return Decision{accepted: true}
}

// Reject returns a rejecting decision with a reason naming the offending
// setting.
func Reject(reason string) Decision {
	return Decision{reason: reason}
}

// Accepted reports whether the accelerated path may replace the default
// writer.
func (d Decision) Accepted() bool {
	return d.accepted
}

// Reason returns the rejection reason; empty when accepted.
func (d Decision) Reason() string {
	return d.reason
}

// CapabilityCheck is the configuration the gate examines at planning time.
type CapabilityCheck struct {
	// Codec is the resolved compression codec name.
	Codec string

	// LegacyFormat requests the older encoding convention of the format,
	// which the accelerated path does not produce.
	LegacyFormat bool

	// TimestampPrecision is the engine's output timestamp type.
	TimestampPrecision TimestampPrecision

	// PlanSupported is the host planner's predicate for whether the
	// surrounding plan node can be replaced. Nil means no veto.
	PlanSupported func() (ok bool, reason string)
}

// CanAccelerate decides whether the accelerated writer may legally replace
// the default one for this job. Pure; rejection reasons are logged at debug
// for diagnostics only.
func CanAccelerate(check CapabilityCheck) Decision {
	if codec := ParseCodec(check.Codec); !codec.Supported() {
		return rejectf("unsupported codec %s", codec)
	}
	if check.LegacyFormat {
		return rejectf("legacy format unsupported")
	}
	if check.TimestampPrecision != TimestampMicros {
		return rejectf("unsupported timestamp precision %s", check.TimestampPrecision)
	}
	if check.PlanSupported != nil {
		if ok, reason := check.PlanSupported(); !ok {
			// Forward the host's reason unchanged.
			slog.Debug("accelerated write rejected by planner", slog.String("reason", reason))
			return Reject(reason)
		}
	}
	return Accept()
}

func rejectf(format string, args ...any) Decision {
	reason := fmt.Sprintf(format, args...)
	slog.Debug("accelerated write rejected", slog.String("reason", reason))
	return Reject(reason)
}
