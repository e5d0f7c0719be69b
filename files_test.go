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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseScanTimes(t *testing.T) {
	start, end, err := ParseScanTimes("s3://noaa-goes16/ABI-L1b-RadF/2019/200/00/OR_ABI-L1b-RadF-M6C01_G16_s20192000000123_e20192000009431_c20192000009489.nc")
	if err != nil {
		t.Fatal(err)
	}
	wantStart := time.Date(2019, 7, 19, 0, 0, 12, 300000000, time.UTC)
	wantEnd := time.Date(2019, 7, 19, 0, 9, 43, 100000000, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("start: have %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Errorf("end: have %v, want %v", end, wantEnd)
	}
	if _, _, err := ParseScanTimes("notes.txt"); err == nil {
		t.Error("file name without times should give an error")
	}
}

func TestLocateFiles(t *testing.T) {
	names := []string{
		"OR_GLM-L2-LCFA_G16_s20192000001000_e20192000001200_c20192000001230.nc",
		"OR_GLM-L2-LCFA_G16_s20192000000400_e20192000000500_c20192000000530.nc",
		"OR_GLM-L2-LCFA_G16_s20192000000000_e20192000000200_c20192000000230.nc",
		"OR_GLM-L2-LCFA_G16_s20192000000590_e20192000001050_c20192000001080.nc",
		"README",
	}
	ini := time.Date(2019, 7, 19, 0, 0, 0, 0, time.UTC)
	fin := ini.Add(time.Minute)
	names2 := func(files []ScanFile) []string {
		var o []string
		for _, f := range files {
			o = append(o, f.Name[len("OR_GLM-L2-LCFA_G16_s2019200"):len("OR_GLM-L2-LCFA_G16_s2019200")+6])
		}
		return o
	}
	for _, test := range []struct {
		mode TimeMode
		want []string
	}{
		{mode: StartTime, want: []string{"000000", "000040", "000059"}},
		{mode: EndTime, want: []string{"000000", "000040"}},
		{mode: BothTimes, want: []string{"000000", "000040"}},
	} {
		t.Run(test.mode.String(), func(t *testing.T) {
			have := names2(LocateFiles(names, ini, fin, test.mode))
			if diff := cmp.Diff(test.want, have); diff != "" {
				t.Errorf("(-want +have):\n%s", diff)
			}
		})
	}
}

func TestParseTimeMode(t *testing.T) {
	for _, s := range []string{"start", "end", "both"} {
		m, err := ParseTimeMode(s)
		if err != nil {
			t.Fatal(err)
		}
		if m.String() != s {
			t.Errorf("have %s, want %s", m, s)
		}
	}
	if _, err := ParseTimeMode("middle"); err == nil {
		t.Error("invalid mode should give an error")
	}
}
