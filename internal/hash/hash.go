/*
Copyright © 2023 the MetBuild authors.
This file is part of MetBuild.

MetBuild is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

MetBuild is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with MetBuild.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package hash creates stable identifiers for cacheable values.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"
)

// Hash returns a stable hexadecimal identifier for data, suitable for
// use as a cache key. data must be gob-encodable.
func Hash(data interface{}) string {
	h := fnv.New64a()
	e := gob.NewEncoder(h)
	if err := e.Encode(data); err != nil {
		panic(fmt.Errorf("hashing %T: %w", data, err))
	}
	return fmt.Sprintf("%x", h.Sum64())
}
