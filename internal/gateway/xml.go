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
	"encoding/xml"
	"strconv"

	"github.com/kelindar/lobos/internal/objectfs"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

// buildListBucketResult renders a ListObjectsV2 XML body from a
// objectfs.ListResult, using the decimal-Unix-timestamp LastModified form
// spec §4.4/§9 requires for listings (not RFC 1123).
func buildListBucketResult(bucket, prefix string, res objectfs.ListResult) []byte {
	var b xmlBuilder
	b.WriteString(xmlHeader)
	b.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	b.WriteString("<Name>")
	b.WriteEscaped(bucket)
	b.WriteString("</Name><Prefix>")
	b.WriteEscaped(prefix)
	b.WriteString("</Prefix><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>")

	for _, c := range res.Contents {
		b.WriteString("<Contents><Key>")
		b.WriteEscaped(c.Key)
		b.WriteString("</Key><LastModified>")
		b.WriteString(strconv.FormatInt(c.ModTime.Unix(), 10))
		b.WriteString("</LastModified><Size>")
		b.WriteString(strconv.FormatInt(c.Size, 10))
		b.WriteString("</Size></Contents>")
	}
	for _, p := range res.CommonPrefixes {
		b.WriteString("<CommonPrefixes><Prefix>")
		b.WriteEscaped(p)
		b.WriteString("</Prefix></CommonPrefixes>")
	}
	b.WriteString("<Marker></Marker></ListBucketResult>")
	return b.Bytes()
}

func buildVersioningConfiguration() []byte {
	return []byte(xmlHeader +
		`<VersioningConfiguration><Status>Suspended</Status><MfaDelete>Disabled</MfaDelete></VersioningConfiguration>`)
}

func buildObjectLockConfiguration() []byte {
	return []byte(xmlHeader + `<ObjectLockConfiguration></ObjectLockConfiguration>`)
}

// buildListAllMyBucketsResult renders the single-bucket bucket listing
// returned for GET / with no params or ?max-buckets (spec §4.5/§6).
func buildListAllMyBucketsResult(bucket string) []byte {
	var b xmlBuilder
	b.WriteString(xmlHeader)
	b.WriteString("<ListAllMyBucketsResult><Buckets><Bucket><BucketRegion>lobos</BucketRegion>")
	b.WriteString("<CreationDate>1970-01-01T00:00:00+00:00</CreationDate><Name>")
	b.WriteEscaped(bucket)
	b.WriteString("</Name></Bucket></Buckets><Owner><ID>lobos</ID></Owner></ListAllMyBucketsResult>")
	return b.Bytes()
}

// buildError renders the bit-exact Error XML body from spec §6.
func buildError(code, message, resource string) []byte {
	var b xmlBuilder
	b.WriteString(xmlHeader)
	b.WriteString("<Error><Code>")
	b.WriteEscaped(code)
	b.WriteString("</Code><Message>")
	b.WriteEscaped(message)
	b.WriteString("</Message>\n<Resource>")
	b.WriteEscaped(resource)
	b.WriteString("</Resource><RequestId>")
	b.WriteString(requestID)
	b.WriteString("</RequestId></Error>")
	return b.Bytes()
}

// requestID is a fixed placeholder, matching spec §6 ("RequestId is a
// placeholder string").
const requestID = "DEADBEEF"

// xmlBuilder is a tiny strings.Builder-style helper that escapes untrusted
// values (keys, prefixes, bucket names) while leaving literal markup alone,
// so the hand-built XML documents above can't be broken by a key containing
// "<" or "&".
type xmlBuilder struct {
	buf []byte
}

func (b *xmlBuilder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

func (b *xmlBuilder) WriteEscaped(s string) {
	xml.EscapeText(&byteSliceWriter{b}, []byte(s))
}

func (b *xmlBuilder) Bytes() []byte { return b.buf }

type byteSliceWriter struct{ b *xmlBuilder }

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	w.b.buf = append(w.b.buf, p...)
	return len(p), nil
}
