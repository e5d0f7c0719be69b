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

package goesgridutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestIsBlob(t *testing.T) {
	for p, want := range map[string]bool{
		"gs://gcp-public-data-goes-16/a.nc": true,
		"s3://noaa-goes16/a.nc":             true,
		"file:///tmp/a.nc":                  true,
		"/tmp/a.nc":                         false,
		"https://example.com/a.nc":          false,
	} {
		if have := IsBlob(p); have != want {
			t.Errorf("%s: have %v, want %v", p, have, want)
		}
	}
}

func TestSplitBlob(t *testing.T) {
	for _, test := range []struct {
		p, bucket, key string
	}{
		{p: "gs://gcp-public-data-goes-16/ABI-L1b-RadC/2019/200/a.nc", bucket: "gs://gcp-public-data-goes-16", key: "ABI-L1b-RadC/2019/200/a.nc"},
		{p: "s3://noaa-goes16/a.nc?region=us-east-1", bucket: "s3://noaa-goes16?region=us-east-1", key: "a.nc"},
		{p: "file:///data/goes/a.nc", bucket: "file:///data/goes/", key: "a.nc"},
	} {
		bucket, key, err := splitBlob(test.p)
		if err != nil {
			t.Fatal(err)
		}
		if bucket != test.bucket || key != test.key {
			t.Errorf("%s: have (%s, %s), want (%s, %s)", test.p, bucket, key, test.bucket, test.key)
		}
	}
	if _, _, err := splitBlob("ftp://server/a.nc"); err == nil {
		t.Error("unsupported provider should give an error")
	}
}

func TestExpandShp(t *testing.T) {
	want := []string{"a/b.shp", "a/b.dbf", "a/b.shx", "a/b.prj"}
	if have := expandShp("a/b.shp"); !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
	if have := expandShp("a/b.nc"); !reflect.DeepEqual(have, []string{"a/b.nc"}) {
		t.Errorf("have %v", have)
	}
}

func TestMaybeDownloadLocal(t *testing.T) {
	k, cleanup, err := maybeDownload(context.Background(), "/dev/null")
	if err != nil {
		t.Fatal(err)
	}
	if k != "/dev/null" {
		t.Error("Expected /dev/null, got ", k)
	}
	cleanup()
	if _, err := os.Stat("/dev/null"); err != nil {
		t.Errorf("cleanup removed a local file: %v", err)
	}
	if k, _, _ := maybeDownload(context.Background(), "/blah/test/"); k != "/blah/test/" {
		t.Error("Expected /blah/test/, got ", k)
	}
}

func TestMaybeDownloadRemote(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "scan.nc"), []byte("scan data"), 0644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	k, cleanup, err := maybeDownload(context.Background(), srv.URL+"/scan.nc")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(k, "scan.nc") || k == filepath.Join(dir, "scan.nc") {
		t.Error("Expected tempDir/scan.nc, got ", k)
	}
	b, err := os.ReadFile(k)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "scan data" {
		t.Errorf("downloaded %q", b)
	}
	cleanup()
	if _, err := os.Stat(filepath.Dir(k)); !os.IsNotExist(err) {
		t.Errorf("download directory was not removed: %v", err)
	}

	if _, _, err := maybeDownload(context.Background(), srv.URL+"/missing.nc"); err == nil {
		t.Error("missing remote file should give an error")
	}
}

func TestBlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	local := t.TempDir()
	remote := t.TempDir()
	remoteURL := "file://" + filepath.ToSlash(remote) + "/"

	var u uploader
	names := []string{"OR_GLM-L2-LCFA_G16_s20192000000000_e20192000000200_c20192000000227.nc", "density.shp"}
	for _, name := range names {
		p := u.maybeUpload(remoteURL + name)
		if !strings.HasPrefix(p, u.dir) {
			t.Fatalf("upload staging file %s is not in %s", p, u.dir)
		}
		for _, f := range expandShp(p) {
			if err := os.WriteFile(f, []byte(filepath.Base(f)), 0644); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := u.upload(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(u.dir); !os.IsNotExist(err) {
		t.Errorf("staging directory was not removed: %v", err)
	}

	have, err := listFiles(ctx, remoteURL)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		remoteURL + "OR_GLM-L2-LCFA_G16_s20192000000000_e20192000000200_c20192000000227.nc",
		remoteURL + "density.dbf",
		remoteURL + "density.prj",
		remoteURL + "density.shp",
		remoteURL + "density.shx",
	}
	if !reflect.DeepEqual(have, want) {
		t.Errorf("listing: have %v, want %v", have, want)
	}

	have, err = listFiles(ctx, remoteURL+"OR_")
	if err != nil {
		t.Fatal(err)
	}
	if len(have) != 1 {
		t.Errorf("prefix listing: have %v", have)
	}

	k, cleanup, err := maybeDownload(ctx, remoteURL+"density.shp")
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	for _, f := range expandShp(k) {
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != filepath.Base(f) {
			t.Errorf("%s: have contents %q", f, b)
		}
	}
	if strings.HasPrefix(k, local) {
		t.Errorf("download was not to a temporary directory: %s", k)
	}
	cleanup()
	for _, f := range expandShp(k) {
		if _, err := os.Stat(f); !os.IsNotExist(err) {
			t.Errorf("downloaded file %s was not removed: %v", f, err)
		}
	}
}

func TestListLocal(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"b.nc", "a.nc", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, f), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	have, err := listFiles(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.nc"), filepath.Join(dir, "b.nc"), filepath.Join(dir, "c.txt")}
	if !reflect.DeepEqual(have, want) {
		t.Errorf("directory: have %v, want %v", have, want)
	}
	have, err = listFiles(ctx, filepath.Join(dir, "*.nc"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(have, want[:2]) {
		t.Errorf("glob: have %v, want %v", have, want[:2])
	}
	if _, err := listFiles(ctx, filepath.Join(dir, "*.hdf")); err == nil {
		t.Error("no matches should give an error")
	}
}
