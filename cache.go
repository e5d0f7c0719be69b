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
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"runtime"

	"github.com/ctessum/requestcache"
	"github.com/spatialmodel/goesgrid/internal/hash"
)

func init() {
	gob.Register(&CoordinateGrid{})
}

// storedGrid is the disk representation of a CoordinateGrid.
type storedGrid struct {
	Ny, Nx   int
	Lon, Lat []float64
}

// GobEncode implements gob.GobEncoder.
func (g *CoordinateGrid) GobEncode() ([]byte, error) {
	ny, nx := g.Shape()
	var b bytes.Buffer
	err := gob.NewEncoder(&b).Encode(storedGrid{Ny: ny, Nx: nx, Lon: g.Lon.Elements, Lat: g.Lat.Elements})
	return b.Bytes(), err
}

// GobDecode implements gob.GobDecoder. The sparse arrays
// have unexported fields that need to be rebuilt.
func (g *CoordinateGrid) GobDecode(data []byte) error {
	var s storedGrid
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	if len(s.Lon) != s.Ny*s.Nx || len(s.Lat) != s.Ny*s.Nx {
		return fmt.Errorf("goesgrid: stored grid has %d longitudes and %d latitudes but shape %dx%d: %w",
			len(s.Lon), len(s.Lat), s.Ny, s.Nx, ErrInvalidShape)
	}
	*g = *NewCoordinateGrid(s.Ny, s.Nx)
	copy(g.Lon.Elements, s.Lon)
	copy(g.Lat.Elements, s.Lat)
	return nil
}

// NavigationRequest specifies a navigation to be carried out by a
// NavigationCache.
type NavigationRequest struct {
	Navigator Navigator

	// X and Y are the scan angles to navigate.
	X, Y []float64

	// Corners specifies that the pixel corners, rather than the pixel
	// centers, should be navigated.
	Corners bool
}

func (r NavigationRequest) key() string {
	return "nav_" + hash.Hash(r)
}

// NavigationCache navigates scans, keeping recent results so that
// repeated requests for the same scan geometry, which is shared by all
// scans of a product, are only calculated once. Concurrent requests
// for the same geometry are combined. It is safe for concurrent use.
type NavigationCache struct {
	cache *requestcache.Cache
}

// NewNavigationCache returns a cache holding up to maxEntries results in
// memory. If dir is not empty, results are also stored in that
// directory so they can be reused by later runs.
func NewNavigationCache(maxEntries int, dir string) *NavigationCache {
	funcs := []requestcache.CacheFunc{requestcache.Deduplicate(), requestcache.Memory(maxEntries)}
	if dir != "" {
		funcs = append(funcs, requestcache.Disk(dir, requestcache.MarshalGob, requestcache.UnmarshalGob))
	}
	return &NavigationCache{
		cache: requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			r := request.(NavigationRequest)
			if r.Corners {
				return r.Navigator.NavigateCorners(r.X, r.Y)
			}
			return r.Navigator.Navigate(r.X, r.Y)
		}, runtime.GOMAXPROCS(-1), funcs...),
	}
}

// Get returns the navigated coordinates for r. The returned grid is
// shared with other callers and must not be modified.
func (c *NavigationCache) Get(ctx context.Context, r NavigationRequest) (*CoordinateGrid, error) {
	result, err := c.cache.NewRequest(ctx, r, r.key()).Result()
	if err != nil {
		return nil, err
	}
	g, ok := result.(*CoordinateGrid)
	if !ok {
		return nil, fmt.Errorf("goesgrid: navigation cache returned %T", result)
	}
	return g, nil
}
