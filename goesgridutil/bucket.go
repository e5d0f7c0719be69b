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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"

	// Register the supported storage providers.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// IsBlob returns whether the given path represents a blob
// (i.e., if it starts with `gs://`, `s3://`, or `file://`).
func IsBlob(p string) bool {
	return strings.HasPrefix(p, "gs://") || strings.HasPrefix(p, "s3://") || strings.HasPrefix(p, "file://")
}

// splitBlob splits the blob location p into the URL of its bucket and
// the key of the object within the bucket. For the local filesystem
// ("file" provider) the bucket is the directory holding the object;
// otherwise it is the URL host.
func splitBlob(p string) (bucketURL, key string, err error) {
	u, err := url.Parse(p)
	if err != nil {
		return "", "", fmt.Errorf("goesgridutil: %v", err)
	}
	switch u.Scheme {
	case "file":
		dir, key := path.Split(u.Path)
		b := url.URL{Scheme: u.Scheme, Path: dir, RawQuery: u.RawQuery}
		return b.String(), key, nil
	case "gs", "s3":
		b := url.URL{Scheme: u.Scheme, Host: u.Host, RawQuery: u.RawQuery}
		return b.String(), strings.TrimPrefix(u.Path, "/"), nil
	default:
		return "", "", fmt.Errorf("goesgridutil: invalid storage provider %q in %s", u.Scheme, p)
	}
}

// OpenBucket returns the blob storage bucket holding the object at p,
// where p must be in the format 'provider://bucket/key'.
// The currently accepted storage providers are "file" for the local filesystem
// (e.g., for testing), "gs" for Google Cloud Storage, and "s3" for AWS S3.
// Provider settings such as the S3 region can be given as URL query
// parameters.
func OpenBucket(ctx context.Context, p string) (*blob.Bucket, string, error) {
	bucketURL, key, err := splitBlob(p)
	if err != nil {
		return nil, "", err
	}
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, "", fmt.Errorf("goesgridutil: opening bucket %s: %v", bucketURL, err)
	}
	return b, key, nil
}

// maybeDownload checks if the input is an existing file locally.
// If not, it checks if the file is a URL or a blob.
// If it is, it downloads the file into a temporary directory and
// returns the path to the downloaded file.
// For shapefiles, it downloads all associated files and
// returns the path to the file with the ".shp" extension.
// The returned cleanup function removes any downloaded files and must
// be called once the file is no longer needed. It is never nil.
func maybeDownload(ctx context.Context, p string) (string, func(), error) {
	nop := func() {}
	// Check if local file exists. If it does, return the given path.
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		return p, nop, nil
	}
	var download func(context.Context, string, string) (string, error)
	switch {
	case strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://"):
		download = downloadHTTP
	case IsBlob(p):
		download = downloadBlob
	default:
		return p, nop, nil
	}
	dir, err := os.MkdirTemp("", "goesgrid")
	if err != nil {
		return "", nop, fmt.Errorf("goesgridutil: creating temporary download directory: %v", err)
	}
	cleanup := func() { os.RemoveAll(dir) }
	local, err := download(ctx, dir, p)
	if err != nil {
		cleanup()
		return "", nop, err
	}
	return local, cleanup, nil
}

// downloadHTTP downloads a file from the specified URL into dir and
// returns the path to the downloaded file.
func downloadHTTP(ctx context.Context, dir, p string) (string, error) {
	fnames := expandShp(p)
	for _, fname := range fnames {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fname, nil)
		if err != nil {
			return "", fmt.Errorf("goesgridutil: downloading %s: %v", fname, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("goesgridutil: downloading %s: %v", fname, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return "", fmt.Errorf("goesgridutil: downloading %s: %s", fname, resp.Status)
		}
		err = saveFile(filepath.Join(dir, path.Base(fname)), resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", err
		}
	}
	logrus.WithField("url", p).Debug("goesgridutil: downloaded file")
	return filepath.Join(dir, path.Base(fnames[0])), nil
}

// downloadBlob downloads the specified file from blob storage into dir.
func downloadBlob(ctx context.Context, dir, p string) (string, error) {
	bucket, key, err := OpenBucket(ctx, p)
	if err != nil {
		return "", err
	}
	defer bucket.Close()
	keys := expandShp(key)
	for _, k := range keys {
		r, err := bucket.NewReader(ctx, k, nil)
		if err != nil {
			return "", fmt.Errorf("goesgridutil: downloading %s: %v", k, err)
		}
		err = saveFile(filepath.Join(dir, path.Base(k)), r)
		r.Close()
		if err != nil {
			return "", err
		}
	}
	logrus.WithField("blob", p).Debug("goesgridutil: downloaded file")
	return filepath.Join(dir, path.Base(keys[0])), nil
}

func saveFile(filename string, r io.Reader) error {
	w, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("goesgridutil: creating file for download: %v", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("goesgridutil: writing %s: %v", filename, err)
	}
	return w.Close()
}

// expandShp returns the given file + associated [.dbf, .shx, .prj]
// files if the given file has the .shp extension, and returns the given
// file otherwise.
func expandShp(filename string) []string {
	o := []string{filename}
	if path.Ext(filename) != ".shp" {
		return o
	}
	for _, newExt := range []string{".dbf", ".shx", ".prj"} {
		o = append(o, strings.TrimSuffix(filename, ".shp")+newExt)
	}
	return o
}

type uploader struct {
	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	files [][2]string
	err   error
	dir   string
}

// maybeUpload checks whether the given output file path refers to
// a blob storage location. If it does, then a temporary file location
// is returned. The file will then be uploaded to blob storage when
// the upload method is run.
func (u *uploader) maybeUpload(p string) string {
	if u.err != nil {
		return ""
	}
	if !IsBlob(p) {
		return p
	}
	if u.dir == "" {
		u.dir, u.err = os.MkdirTemp("", "goesgrid")
		if u.err != nil {
			return ""
		}
	}
	files := expandShp(p)
	for _, f := range files {
		u.files = append(u.files, [2]string{
			filepath.Join(u.dir, path.Base(f)),
			f,
		})
	}
	return filepath.Join(u.dir, path.Base(files[0]))
}

// upload copies the local files registered by maybeUpload to blob
// storage and removes the temporary directory.
func (u *uploader) upload(ctx context.Context) error {
	if u.err != nil {
		return u.err
	}
	if u.dir != "" {
		defer os.RemoveAll(u.dir)
	}
	for _, files := range u.files {
		if err := uploadFile(ctx, files[0], files[1]); err != nil {
			return err
		}
	}
	return nil
}

func uploadFile(ctx context.Context, local, remote string) error {
	r, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("goesgridutil: opening file '%s' for upload: %v", local, err)
	}
	defer r.Close()
	bucket, key, err := OpenBucket(ctx, remote)
	if err != nil {
		return err
	}
	defer bucket.Close()
	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("goesgridutil: opening writer to upload file '%s': %v", remote, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("goesgridutil: uploading file '%s' to '%s': %v", local, remote, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("goesgridutil: uploading file '%s' to '%s': %v", local, remote, err)
	}
	logrus.WithField("blob", remote).Debug("goesgridutil: uploaded file")
	return nil
}

// listFiles returns the files at location, which can be a local
// directory, a local glob pattern, or a blob storage prefix such as
// s3://noaa-goes16/ABI-L1b-RadC/2019/200/. Files in blob storage are
// returned as blob URLs. The results are sorted.
func listFiles(ctx context.Context, location string) ([]string, error) {
	if !IsBlob(location) {
		return listLocal(location)
	}
	if strings.Contains(location, "?") {
		return nil, fmt.Errorf("goesgridutil: listing %s: query parameters are not supported", location)
	}
	bucket, prefix, err := OpenBucket(ctx, location)
	if err != nil {
		return nil, err
	}
	defer bucket.Close()
	base := strings.TrimSuffix(location, prefix)
	var o []string
	iter := bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("goesgridutil: listing %s: %v", location, err)
		}
		if obj.IsDir {
			continue
		}
		o = append(o, base+obj.Key)
	}
	sort.Strings(o)
	return o, nil
}

func listLocal(location string) ([]string, error) {
	fi, err := os.Stat(location)
	if err != nil {
		matches, gerr := filepath.Glob(location)
		if gerr != nil || len(matches) == 0 {
			return nil, fmt.Errorf("goesgridutil: listing %s: %v", location, err)
		}
		sort.Strings(matches)
		return matches, nil
	}
	if !fi.IsDir() {
		return []string{location}, nil
	}
	entries, err := os.ReadDir(location)
	if err != nil {
		return nil, fmt.Errorf("goesgridutil: listing %s: %v", location, err)
	}
	var o []string
	for _, e := range entries {
		if !e.IsDir() {
			o = append(o, filepath.Join(location, e.Name()))
		}
	}
	return o, nil
}
