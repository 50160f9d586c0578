package sqlite

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
)

// snapshotRow is the persisted form of one entity. name, searchText and visible are derived
// from the payload at write time so list and search never need to parse JSON.
type snapshotRow struct {
	id         string
	name       string
	searchText string
	visible    bool
	data       []byte
}

// codec knows how one entity kind maps onto a snapshot row
type codec[T any] interface {
	kind() model.CacheKind
	encode(item *T) (*snapshotRow, error)
}

func decodeEntity[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, goerr.Wrap(ErrSerialization, "failed to decode cached entity", goerr.V("error", err.Error()))
	}
	return &v, nil
}

type accountCodec struct{}

func (accountCodec) kind() model.CacheKind { return model.CacheKindAccounts }

// encode hides bots from list and search
func (accountCodec) encode(a *model.Account) (*snapshotRow, error) {
	if a == nil || a.ID == "" {
		return nil, goerr.Wrap(ErrSerialization, "account has no ID")
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, goerr.Wrap(ErrSerialization, "failed to encode account",
			goerr.V(EntityIDKey, a.ID), goerr.V("error", err.Error()))
	}

	return &snapshotRow{
		id:         string(a.ID),
		name:       a.Name,
		searchText: a.SearchText(),
		visible:    a.Listed(),
		data:       data,
	}, nil
}

type channelCodec struct{}

func (channelCodec) kind() model.CacheKind { return model.CacheKindChannels }

// encode hides archived channels from list and search
func (channelCodec) encode(ch *model.Channel) (*snapshotRow, error) {
	if ch == nil || ch.ID == "" {
		return nil, goerr.Wrap(ErrSerialization, "channel has no ID")
	}
	data, err := json.Marshal(ch)
	if err != nil {
		return nil, goerr.Wrap(ErrSerialization, "failed to encode channel",
			goerr.V(EntityIDKey, ch.ID), goerr.V("error", err.Error()))
	}

	return &snapshotRow{
		id:         string(ch.ID),
		name:       ch.Name,
		searchText: ch.SearchText(),
		visible:    ch.Listed(),
		data:       data,
	}, nil
}
