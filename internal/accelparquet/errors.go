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

// ConfigError is a job-start-time configuration failure. It is never
// retried automatically; the job must be reconfigured.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "accelparquet config: " + e.Field + " " + e.Message
}

// EncodeError is a per-batch native encoder failure. The batch and the
// accelerator lease are guaranteed released before it propagates.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return "accelparquet: encode batch: " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// TransferError is a per-batch destination copy failure. The staging file
// is guaranteed deleted before it propagates.
type TransferError struct {
	Dest string
	Err  error
}

func (e *TransferError) Error() string {
	return "accelparquet: transfer to " + e.Dest + ": " + e.Err.Error()
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
