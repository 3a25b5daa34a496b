/*
 * MIT License
 *
 * Copyright (c) 2022-2025  Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package actor

// Status is the lifecycle state of an actor
type Status int32

const (
	// Created is the status of a record that is not running yet
	Created Status = iota
	// Running actors dispatch their messages
	Running
	// Failed actors wait for their supervisor decision. Their messages stay queued.
	Failed
	// Restarting actors are being reinitialized from durable storage
	Restarting
	// Stopped is terminal
	Stopped
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Created:
		return "Created"
	case Running:
		return "Running"
	case Failed:
		return "Failed"
	case Restarting:
		return "Restarting"
	case Stopped:
		return "Stopped"
	default:
		return ""
	}
}

// transitions lists the statuses reachable from a given status.
// Running -> Restarting happens when a sibling failure restarts the whole scope.
var transitions = map[Status][]Status{
	Created:    {Running, Stopped},
	Running:    {Failed, Restarting, Stopped},
	Failed:     {Restarting, Running, Stopped},
	Restarting: {Running, Stopped},
	Stopped:    nil,
}

// canTransition reports whether from -> to is a legal lifecycle move
func canTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
