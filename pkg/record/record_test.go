package record

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/airtable/pkg/relationships"
)

type person struct {
	Base
	name    *Field[string]
	age     *Field[int]
	active  *Field[bool]
	photo   *Attachment
	friends *Relationship[*person]
}

func newPerson() *person {
	return &person{
		name:    NewField[string]("Name"),
		age:     NewField[int]("Age"),
		active:  NewField[bool]("Active"),
		photo:   NewAttachment("Photo"),
		friends: NewRelationship[*person]("Friends"),
	}
}

func (p *person) Fields() []Descriptor {
	return []Descriptor{p.name, p.age, p.active, p.photo, p.friends, nil}
}

var people = Type[*person]{Table: "People", New: newPerson, ExpireAfter: time.Minute}

func alice() Payload {
	return Payload{
		"id":          "recAlice",
		"createdTime": "2024-03-05T10:20:30.000Z",
		"fields": map[string]any{
			"Name":    "Alice",
			"Age":     float64(30),
			"Active":  true,
			"Friends": []any{"recBob", "recCarol"},
			"Photo": []any{
				map[string]any{"thumbnails": map[string]any{
					"large": map[string]any{"url": "https://img/first.png", "width": float64(10), "height": float64(20)},
				}},
				map[string]any{"thumbnails": map[string]any{
					"large": map[string]any{"url": "https://img/last.png", "width": float64(512), "height": float64(256)},
				}},
			},
		},
	}
}

func TestBindAttachesDescriptors(t *testing.T) {
	p := people.Decode(alice())

	id, ok := p.ID()
	require.True(t, ok)
	assert.Equal(t, "recAlice", id)

	name, ok := p.name.Get()
	assert.True(t, ok)
	assert.Equal(t, "Alice", name)

	age, ok := p.age.Get()
	assert.True(t, ok)
	assert.Equal(t, 30, age)

	assert.Equal(t, []string{"recBob", "recCarol"}, p.friends.IDs())
}

func TestFieldAbsentOrMistyped(t *testing.T) {
	p := people.Decode(Payload{"fields": map[string]any{"Name": float64(7), "Age": "thirty"}})

	_, ok := p.name.Get()
	assert.False(t, ok, "number is not a string")
	_, ok = p.age.Get()
	assert.False(t, ok, "string is not an int")

	_, ok = p.ID()
	assert.False(t, ok)
}

func TestFieldUnsupportedType(t *testing.T) {
	p := people.Decode(alice())
	_, ok := p.active.Get()
	assert.False(t, ok, "bool targets are not decoded")
}

func TestFieldIntShapes(t *testing.T) {
	for _, v := range []any{float64(42), 42, int64(42)} {
		f := NewField[int]("n")
		f.Attach(map[string]any{"n": v})
		got, ok := f.Get()
		assert.True(t, ok)
		assert.Equal(t, 42, got)
	}
}

func TestBindWithoutFields(t *testing.T) {
	p := people.Decode(Payload{"id": "recEmpty"})

	_, ok := p.name.Get()
	assert.False(t, ok)
	assert.Nil(t, p.friends.IDs())
	assert.Equal(t, 0, p.friends.Count())
	_, ok = p.photo.URL()
	assert.False(t, ok)
}

func TestRebindReplacesViews(t *testing.T) {
	p := people.Decode(alice())
	Bind(p, Payload{"id": "recBob", "fields": map[string]any{"Name": "Bob"}})

	name, _ := p.name.Get()
	assert.Equal(t, "Bob", name)
	_, ok := p.age.Get()
	assert.False(t, ok)
	assert.Nil(t, p.friends.IDs())
}

func TestAttachmentUsesLastElement(t *testing.T) {
	p := people.Decode(alice())

	url, ok := p.photo.URL()
	require.True(t, ok)
	assert.Equal(t, "https://img/last.png", url)

	size, ok := p.photo.ThumbnailSize()
	require.True(t, ok)
	assert.Equal(t, Size{Width: 512, Height: 256}, size)
}

func TestAttachmentWithoutLargeThumbnail(t *testing.T) {
	a := NewAttachment("Photo")
	a.Attach(map[string]any{"Photo": []any{map[string]any{"thumbnails": map[string]any{"small": map[string]any{}}}}})

	_, ok := a.URL()
	assert.False(t, ok)
	_, ok = a.ThumbnailSize()
	assert.False(t, ok)
}

func TestRelationship(t *testing.T) {
	r := NewRelationship[*person]("Friends")
	r.Attach(map[string]any{"Friends": []any{"recA", 12, "recB", nil}})

	assert.Equal(t, "Friends", r.Key())
	assert.Equal(t, []string{"recA", "recB"}, r.IDs())
	assert.Equal(t, 2, r.Count())
	assert.True(t, r.HasKey("recB"))
	assert.False(t, r.HasKey("recC"))

	ids := r.IDs()
	ids[0] = "mutated"
	assert.Equal(t, "recA", r.IDs()[0], "IDs must return a copy")
}

func TestRelationshipResolve(t *testing.T) {
	p := people.Decode(alice())

	fetcher := relationships.FetcherFunc[*person](func(ctx context.Context, id string) (*person, error) {
		return people.Decode(Payload{"id": id}), nil
	})

	friends, err := p.friends.Resolve(context.Background(), fetcher)
	require.NoError(t, err)
	require.Len(t, friends, 2)

	id0, _ := friends[0].ID()
	id1, _ := friends[1].ID()
	assert.Equal(t, "recBob", id0)
	assert.Equal(t, "recCarol", id1)
}

func TestEqual(t *testing.T) {
	a := people.Decode(Payload{"id": "rec1"})
	b := people.Decode(Payload{"id": "rec1", "fields": map[string]any{"Name": "other"}})
	c := people.Decode(Payload{"id": "rec2"})
	unsaved := people.Decode(Payload{"fields": map[string]any{}})

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(unsaved, unsaved), "records without ids are never equal")
	assert.False(t, Equal(a, unsaved))
}

func TestCreatedTime(t *testing.T) {
	p := people.Decode(alice())
	created, err := p.CreatedTime()
	require.NoError(t, err)
	assert.True(t, created.Equal(time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)))

	_, err = people.Decode(Payload{}).CreatedTime()
	assert.True(t, errors.Is(err, ErrNoCreatedTime))

	offset, err := people.Decode(Payload{"createdTime": "2015-11-28T09:00:00.000+0800"}).CreatedTime()
	require.NoError(t, err)
	assert.True(t, offset.Equal(time.Date(2015, 11, 28, 1, 0, 0, 0, time.UTC)))

	extended, err := people.Decode(Payload{"createdTime": "2015-11-28T09:00:00.000+08:00"}).CreatedTime()
	require.NoError(t, err)
	assert.True(t, extended.Equal(offset))

	_, err = people.Decode(Payload{"createdTime": "yesterday"}).CreatedTime()
	assert.Error(t, err)
}

func TestClone(t *testing.T) {
	orig := alice()
	copied := Clone(orig)
	assert.Equal(t, orig, copied)

	copied["fields"].(map[string]any)["Friends"].([]any)[0] = "recChanged"
	assert.Equal(t, "recBob", orig["fields"].(map[string]any)["Friends"].([]any)[0])

	assert.Nil(t, Clone(nil))
}

func TestType(t *testing.T) {
	assert.True(t, people.Cached())
	assert.Equal(t, "People", people.TypeName())
	assert.Equal(t, "People.list", people.ListKey())

	named := Type[*person]{Name: "person", Table: "People"}
	assert.False(t, named.Cached())
	assert.Equal(t, "person", named.TypeName())
	assert.Equal(t, "person.list", named.ListKey())
}

func TestBaseOf(t *testing.T) {
	p := people.Decode(alice())
	assert.Same(t, &p.Base, BaseOf(p))
	assert.Equal(t, "Alice", BaseOf(p).FieldValues()["Name"])
}
