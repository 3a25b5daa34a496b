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

import "time"

const (
	// DefaultAskTimeout bounds the requests the System makes on behalf of its callers
	DefaultAskTimeout = 5 * time.Second
	// DefaultShutdownTimeout bounds System.Stop
	DefaultShutdownTimeout = time.Minute
	// DefaultSnapshotInterval is the number of committed events between automatic snapshots
	DefaultSnapshotInterval = 100
	// DefaultSystemName is the name of a System created without WithName
	DefaultSystemName = "esakt"
	// DefaultTombstoneTTL is how long a stopped actor stays in the registry
	DefaultTombstoneTTL = 10 * time.Minute

	compactionJobKey = "esakt.compaction"
	tombstoneJobKey  = "esakt.tombstones"
)
