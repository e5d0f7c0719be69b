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

import "errors"

var (
	// ErrInvalidShape is returned when array shapes do not agree with each
	// other or when region bounds are malformed.
	ErrInvalidShape = errors.New("invalid input shape")

	// ErrEmptySelection is returned when a requested geographic region
	// does not contain any valid pixel.
	ErrEmptySelection = errors.New("empty selection")

	// ErrTypeMismatch is returned when an operation is applied to a
	// Field of the wrong kind.
	ErrTypeMismatch = errors.New("field type mismatch")

	// ErrUnsupportedFormat is returned when an input file is not a
	// classic or 64-bit offset netCDF file. netCDF-4 (HDF5) files must
	// be converted first, for example with "nccopy -k classic".
	ErrUnsupportedFormat = errors.New("unsupported file format")
)
