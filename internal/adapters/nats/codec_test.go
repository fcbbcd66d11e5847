package natsadapter

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

func TestEncodeDecode_Protobuf(t *testing.T) {
	ev := &domain.BoundaryEvent{
		Type:         "plot.updated",
		TenantID:     "coop-1",
		FarmID:       "f1",
		PlotID:       "p9",
		AreaHectares: 12.75,
		Centroid:     domain.GeoPoint{Lat: -12.5, Lng: -55.7},
		At:           time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}

	data, ct, err := encode(EncodingProtobuf, ev)
	require.NoError(t, err)
	assert.Equal(t, contentTypeProto, ct)

	msg := nats.NewMsg("fieldkit.boundary.coop-1.f1")
	msg.Header.Set(contentTypeHeader, ct)
	msg.Data = data

	got, err := DecodeBoundaryEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, ev.PlotID, got.PlotID)
	assert.Equal(t, ev.AreaHectares, got.AreaHectares)
	assert.Equal(t, ev.Centroid, got.Centroid)
	assert.True(t, ev.At.Equal(got.At))
}

func TestEncode_JSONDefault(t *testing.T) {
	data, ct, err := encode("", map[string]string{"type": "farm.created"})
	require.NoError(t, err)
	assert.Equal(t, contentTypeJSON, ct)
	assert.JSONEq(t, `{"type":"farm.created"}`, string(data))
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "fieldkit.boundary.acme_br.f1", BoundarySubject("acme.br", "f1"))
	assert.Equal(t, "fieldkit.audit._._", AuditSubject("", "*"))
	assert.Equal(t, "fieldkit.boundary.>", TenantBoundarySubjects(""))
	assert.Equal(t, "fieldkit.boundary.t1.>", TenantBoundarySubjects("t1"))
	assert.Equal(t, "fieldkit.audit.t1.*", TenantAuditSubjects("t1"))
}

func TestValidToken(t *testing.T) {
	for _, ok := range []string{"acme", "acme_br", "acme-br", "4f1c2d3e-0000-4000-8000-000000000000"} {
		assert.True(t, ValidToken(ok), ok)
	}
	for _, bad := range []string{"", "acme.br", "acme*", "acme>", "acme br", "acme\tbr"} {
		assert.False(t, ValidToken(bad), bad)
	}

	// ids that pass are used verbatim, so two tenants never share a subject
	assert.NotEqual(t, BoundarySubject("acme_br", "f1"), BoundarySubject("acme-br", "f1"))
	assert.Equal(t, "fieldkit.boundary.acme_br.f1", BoundarySubject("acme_br", "f1"))
}
