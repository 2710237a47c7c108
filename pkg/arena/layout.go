// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package arena

import (
	"fmt"

	"github.com/daviszhen/groupby/pkg/util"
)

// Layout is the size and alignment of a state region.
type Layout struct {
	Size  int
	Align int
}

func NewLayout(size, align int) Layout {
	util.AssertFunc(size >= 0)
	util.AssertFunc(align > 0 && util.IsPowerOfTwo(uint64(align)))
	return Layout{Size: size, Align: align}
}

// PadToAlign rounds the size up to a multiple of the alignment, so
// that blocks placed back to back stay aligned.
func (l Layout) PadToAlign() Layout {
	return Layout{
		Size:  util.AlignValue(l.Size, l.Align),
		Align: l.Align,
	}
}

func (l Layout) String() string {
	return fmt.Sprintf("size=%d align=%d", l.Size, l.Align)
}

// GetLayoutOffsets packs the state regions in order. Each region
// starts at an offset aligned for it. The block alignment is the
// largest region alignment and the block size is padded to it.
func GetLayoutOffsets(layouts []Layout) (Layout, []int) {
	total := 0
	maxAlign := 1
	offsets := make([]int, 0, len(layouts))
	for _, l := range layouts {
		util.AssertFunc(l.Align > 0 && util.IsPowerOfTwo(uint64(l.Align)))
		total = util.AlignValue(total, l.Align)
		offsets = append(offsets, total)
		maxAlign = max(maxAlign, l.Align)
		total += l.Size
	}
	return NewLayout(total, maxAlign).PadToAlign(), offsets
}
