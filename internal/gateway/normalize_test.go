// Copyright 2025 Roman Atachiants
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_StripsBucketPrefix(t *testing.T) {
	key, params, err := Normalize("/mybucket/a/b/c.txt", "mybucket")
	require.NoError(t, err)
	assert.Equal(t, "a/b/c.txt", key)
	assert.Empty(t, params)
}

func TestNormalize_BareBucketIsEmptyKey(t *testing.T) {
	key, _, err := Normalize("/mybucket", "mybucket")
	require.NoError(t, err)
	assert.Equal(t, "", key)
}

func TestNormalize_BareBucketWithQueryIsEmptyKey(t *testing.T) {
	key, params, err := Normalize("/mybucket?list-type=2&prefix=a/", "mybucket")
	require.NoError(t, err)
	assert.Equal(t, "", key)
	assert.Equal(t, "2", params.Get("list-type"))
	assert.Equal(t, "a/", params.Get("prefix"))
}

func TestNormalize_MalformedTarget(t *testing.T) {
	_, _, err := Normalize("/%zz", "mybucket")
	assert.ErrorIs(t, err, ErrMalformedTarget)
}

func TestNormalize_DuplicateQueryKeepsFirst(t *testing.T) {
	_, params, err := Normalize("/mybucket?prefix=first&prefix=second", "mybucket")
	require.NoError(t, err)
	assert.Equal(t, "first", params.Get("prefix"))
}

func TestNormalize_SlashDelimiterAllowed(t *testing.T) {
	_, _, err := Normalize("/mybucket?delimiter=/", "mybucket")
	assert.NoError(t, err)
}

func TestNormalize_EmptyDelimiterAllowed(t *testing.T) {
	_, _, err := Normalize("/mybucket?delimiter=", "mybucket")
	assert.NoError(t, err)
}

func TestNormalize_UnsupportedDelimiterRejected(t *testing.T) {
	_, _, err := Normalize("/mybucket?delimiter=,", "mybucket")
	assert.ErrorIs(t, err, ErrUnsupportedDelimiter)
}

func TestNormalize_UnrelatedPathNotStripped(t *testing.T) {
	key, _, err := Normalize("/otherprefix/a/b", "mybucket")
	require.NoError(t, err)
	assert.Equal(t, "otherprefix/a/b", key)
}
