// Copyright 2022 The Armored Witness OS authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
)

// C runtime entry symbol of TI C6000 images
const EntrySym = "_c_int00"

func LookupSym(buf []byte, name string) (*elf.Symbol, error) {
	exe, err := elf.NewFile(bytes.NewReader(buf))

	if err != nil {
		return nil, err
	}

	syms, err := exe.Symbols()

	if err != nil {
		return nil, err
	}

	for i := range syms {
		if syms[i].Name == name {
			return &syms[i], nil
		}
	}

	return nil, errors.New("symbol not found")
}

// EntryPoint returns the address of the C runtime entry of a 32-bit ELF
// image, the header entry is used when the symbol is absent.
func EntryPoint(buf []byte) (entry uint32, err error) {
	exe, err := elf.NewFile(bytes.NewReader(buf))

	if err != nil {
		return
	}

	if exe.Class != elf.ELFCLASS32 {
		return 0, fmt.Errorf("unsupported ELF class %s", exe.Class)
	}

	if sym, err := LookupSym(buf, EntrySym); err == nil {
		return uint32(sym.Value), nil
	}

	if exe.Entry == 0 {
		return 0, fmt.Errorf("%s not found and no entry point", EntrySym)
	}

	return uint32(exe.Entry), nil
}
