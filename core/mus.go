// Copyright 2025 Poiesic Systems
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


package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted record types. Timestamps are stored as
// Unix microseconds; the zero time is stored as 0 so nullable fields
// (CompletedAt) round-trip.

var (
	vectorMUS   = ord.NewSliceSer[float32](raw.Float32)
	metadataMUS = ord.NewMapSer[string, string](ord.String, ord.String)
)

// IDMUS serializes ID values.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func marshalTime(t time.Time, bs []byte) (n int) {
	var us int64
	if !t.IsZero() {
		us = t.UnixMicro()
	}
	return raw.Int64.Marshal(us, bs)
}

func unmarshalTime(bs []byte) (t time.Time, n int, err error) {
	us, n, err := raw.Int64.Unmarshal(bs)
	if err != nil || us == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func sizeTime(t time.Time) (size int) {
	var us int64
	if !t.IsZero() {
		us = t.UnixMicro()
	}
	return raw.Int64.Size(us)
}

// ChunkMUS serializes Chunk values.
var ChunkMUS = chunkMUS{}

type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Tenant, bs[n:])
	n += ord.String.Marshal(v.Collection, bs[n:])
	n += ord.String.Marshal(v.DocumentID, bs[n:])
	n += varint.Int.Marshal(v.Ordinal, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += metadataMUS.Marshal(v.Metadata, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.ExpiresAt, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var n1 int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.Tenant, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Collection, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.DocumentID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Metadata, n1, err = metadataMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ExpiresAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (chunkMUS) Size(v Chunk) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Tenant)
	size += ord.String.Size(v.Collection)
	size += ord.String.Size(v.DocumentID)
	size += varint.Int.Size(v.Ordinal)
	size += ord.String.Size(v.Text)
	size += vectorMUS.Size(v.Vector)
	size += metadataMUS.Size(v.Metadata)
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.ExpiresAt)
	return size
}

// JobMUS serializes Job values.
var JobMUS = jobMUS{}

type jobMUS struct{}

func (jobMUS) Marshal(v Job, bs []byte) (n int) {
	n = ord.String.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Tenant, bs[n:])
	n += ord.String.Marshal(v.Collection, bs[n:])
	n += ord.String.Marshal(v.DocumentID, bs[n:])
	n += ord.String.Marshal(v.BlobRef, bs[n:])
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	n += varint.Int.Marshal(v.Progress, bs[n:])
	n += ord.Bool.Marshal(v.Error != nil, bs[n:])
	if v.Error != nil {
		n += ord.String.Marshal(v.Error.Kind, bs[n:])
		n += ord.String.Marshal(v.Error.Message, bs[n:])
	}
	n += varint.Int.Marshal(v.Result.PagesProcessed, bs[n:])
	n += varint.Int.Marshal(v.Result.ChunksCreated, bs[n:])
	n += varint.Int.Marshal(v.Result.EmbeddingsGenerated, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	n += marshalTime(v.CompletedAt, bs[n:])
	n += marshalTime(v.ExpiresAt, bs[n:])
	return n
}

func (jobMUS) Unmarshal(bs []byte) (v Job, n int, err error) {
	var n1 int
	if v.Id, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Tenant, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Collection, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.DocumentID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.BlobRef, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var status int
	if status, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Status = JobStatus(status)
	n += n1
	if v.Progress, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var hasError bool
	if hasError, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if hasError {
		v.Error = &JobError{}
		if v.Error.Kind, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
		if v.Error.Message, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
	}
	if v.Result.PagesProcessed, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Result.ChunksCreated, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Result.EmbeddingsGenerated, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.UpdatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CompletedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ExpiresAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (jobMUS) Size(v Job) (size int) {
	size = ord.String.Size(v.Id)
	size += ord.String.Size(v.Tenant)
	size += ord.String.Size(v.Collection)
	size += ord.String.Size(v.DocumentID)
	size += ord.String.Size(v.BlobRef)
	size += varint.Int.Size(int(v.Status))
	size += varint.Int.Size(v.Progress)
	size += ord.Bool.Size(v.Error != nil)
	if v.Error != nil {
		size += ord.String.Size(v.Error.Kind)
		size += ord.String.Size(v.Error.Message)
	}
	size += varint.Int.Size(v.Result.PagesProcessed)
	size += varint.Int.Size(v.Result.ChunksCreated)
	size += varint.Int.Size(v.Result.EmbeddingsGenerated)
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.UpdatedAt)
	size += sizeTime(v.CompletedAt)
	size += sizeTime(v.ExpiresAt)
	return size
}
