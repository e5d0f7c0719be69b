/*
Copyright © 2019 the goesgrid authors.
This file is part of goesgrid.

goesgrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

goesgrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with goesgrid.  If not, see <http://www.gnu.org/licenses/>.
*/

package goesgrid

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// TimeMode selects which of the scan times of a file must be within a
// time window for the file to be selected.
type TimeMode int

// These are the supported time modes.
const (
	// StartTime selects files whose scan started within the window.
	StartTime TimeMode = iota
	// EndTime selects files whose scan ended within the window.
	EndTime
	// BothTimes selects files whose scan started and ended within the
	// window.
	BothTimes
)

// ParseTimeMode returns the time mode named s, which must be "start",
// "end" or "both". An empty string returns StartTime.
func ParseTimeMode(s string) (TimeMode, error) {
	switch s {
	case "start", "":
		return StartTime, nil
	case "end":
		return EndTime, nil
	case "both":
		return BothTimes, nil
	}
	return 0, fmt.Errorf("goesgrid: invalid time mode %q; valid modes are start, end and both", s)
}

func (m TimeMode) String() string {
	switch m {
	case EndTime:
		return "end"
	case BothTimes:
		return "both"
	default:
		return "start"
	}
}

// Within returns whether the scan times start and end are within the
// window [ini, fin) according to m.
func (m TimeMode) Within(start, end, ini, fin time.Time) bool {
	in := func(t time.Time) bool { return !t.Before(ini) && t.Before(fin) }
	switch m {
	case EndTime:
		return in(end)
	case BothTimes:
		return in(start) && in(end)
	default:
		return in(start)
	}
}

// scanTimeRE matches the scan start and end times embedded in GOES
// product file names, for example
// OR_ABI-L1b-RadF-M6C01_G16_s20192000000123_e20192000009431_c20192000009489.nc.
var scanTimeRE = regexp.MustCompile(`_s(\d{14})_e(\d{14})`)

// ParseScanTimes returns the scan start and end times encoded in the
// file name name. Each time is written as year, day of year, hour,
// minute, second and tenth of a second (YYYYJJJHHMMSSt).
func ParseScanTimes(name string) (start, end time.Time, err error) {
	m := scanTimeRE.FindStringSubmatch(path.Base(name))
	if m == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("goesgrid: no scan times in file name %q", name)
	}
	if start, err = parseScanTime(m[1]); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("goesgrid: file %q: %v", name, err)
	}
	if end, err = parseScanTime(m[2]); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("goesgrid: file %q: %v", name, err)
	}
	return start, end, nil
}

func parseScanTime(s string) (time.Time, error) {
	t, err := time.Parse("2006002150405", s[:13])
	if err != nil {
		return time.Time{}, err
	}
	tenths, err := strconv.Atoi(s[13:])
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(time.Duration(tenths) * 100 * time.Millisecond).UTC(), nil
}

// ScanFile is a file name along with the scan times encoded in it.
type ScanFile struct {
	Name       string
	Start, End time.Time
}

// LocateFiles returns the files in names whose scan times are within
// the window [ini, fin) according to mode, sorted by scan start time.
// Names that do not contain scan times are skipped.
func LocateFiles(names []string, ini, fin time.Time, mode TimeMode) []ScanFile {
	var o []ScanFile
	for _, n := range names {
		start, end, err := ParseScanTimes(n)
		if err != nil {
			continue
		}
		if mode.Within(start, end, ini, fin) {
			o = append(o, ScanFile{Name: n, Start: start, End: end})
		}
	}
	sort.SliceStable(o, func(i, j int) bool { return o[i].Start.Before(o[j].Start) })
	return o
}
