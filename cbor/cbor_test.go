// Copyright 2025 Lumenaut Software
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

package cbor_test

import (
	"testing"

	"github.com/lumenaut-io/gohorizon/cbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	cbor.StructAsArray
	Id    uint
	Name  string
	Value []byte
}

func TestStructAsArrayRoundTrip(t *testing.T) {
	src := testStruct{
		Id:    7,
		Name:  "test",
		Value: []byte{0x1, 0x2, 0x3},
	}
	data, err := cbor.Encode(&src)
	require.NoError(t, err)
	// Leading byte should indicate a 3-element array
	assert.Equal(t, byte(0x83), data[0])
	var dest testStruct
	_, err = cbor.Decode(data, &dest)
	require.NoError(t, err)
	assert.Equal(t, src.Id, dest.Id)
	assert.Equal(t, src.Name, dest.Name)
	assert.Equal(t, src.Value, dest.Value)
}

func TestEncodeDeterministic(t *testing.T) {
	src := map[string]int{"b": 2, "a": 1, "c": 3}
	data1, err := cbor.Encode(src)
	require.NoError(t, err)
	data2, err := cbor.Encode(src)
	require.NoError(t, err)
	assert.Equal(t, data1, data2)
}

func TestListLength(t *testing.T) {
	data, err := cbor.Encode([]any{uint(1), "two", uint(3)})
	require.NoError(t, err)
	length, err := cbor.ListLength(data)
	require.NoError(t, err)
	assert.Equal(t, 3, length)
}

func TestDecodeIdFromList(t *testing.T) {
	data, err := cbor.Encode([]any{uint(4), "payload"})
	require.NoError(t, err)
	id, err := cbor.DecodeIdFromList(data)
	require.NoError(t, err)
	assert.Equal(t, 4, id)
}

func TestDecodeIdFromEmptyList(t *testing.T) {
	data, err := cbor.Encode([]any{})
	require.NoError(t, err)
	_, err = cbor.DecodeIdFromList(data)
	assert.Error(t, err)
}

func TestDecodeStoreCbor(t *testing.T) {
	type stored struct {
		cbor.DecodeStoreCbor
		cbor.StructAsArray
		Id uint
	}
	data, err := cbor.Encode([]any{uint(9)})
	require.NoError(t, err)
	var dest stored
	err = dest.UnmarshalCborGeneric(data, &dest)
	require.NoError(t, err)
	assert.Equal(t, uint(9), dest.Id)
	assert.Equal(t, data, dest.Cbor())
}
