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

// Command goesgrid is a command-line interface for navigating and
// regridding GOES satellite data.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spatialmodel/goesgrid/goesgridutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := goesgridutil.Root.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(-1)
	}
}
