package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldOr(t *testing.T) {
	a := Parsed(1)
	b := Parsed(2)
	none := Fallback[int]()

	assert.Equal(t, 1, a.Or(b).OrElse(0))
	assert.Equal(t, 2, none.Or(b).OrElse(0))
	assert.False(t, none.Or(none).Ok())
}

func TestFieldJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Field[int] `json:"a"`
		B Field[int] `json:"b"`
	}{A: Parsed(3), B: Fallback[int]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3,"b":null}`, string(b))

	var out struct {
		A Field[int] `json:"a"`
		B Field[int] `json:"b"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, 3, out.A.OrElse(0))
	assert.False(t, out.B.Ok())
}

func TestTimeOfDayJSON(t *testing.T) {
	for _, tod := range []TimeOfDay{MustTimeOfDay(5, 30, 0), MustTimeOfDay(23, 59, 59)} {
		b, err := json.Marshal(tod)
		require.NoError(t, err)
		var got TimeOfDay
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, tod, got)
	}
	var bad TimeOfDay
	assert.True(t, errors.Is(json.Unmarshal([]byte(`"noon"`), &bad), ErrUnparseable))
	assert.Error(t, json.Unmarshal([]byte(`"25:00"`), &bad))
}

func TestOffpeakWindowOn(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	day := time.Date(2024, 3, 30, 12, 0, 0, 0, loc)

	w := OffpeakWindow{Start: MustTimeOfDay(23, 30, 0), End: MustTimeOfDay(5, 30, 0)}
	require.True(t, w.Wraps())
	iv := w.On(day)
	assert.Equal(t, time.Date(2024, 3, 30, 23, 30, 0, 0, loc), iv.Start)
	assert.Equal(t, time.Date(2024, 3, 31, 5, 30, 0, 0, loc), iv.End)
	// the clocks go forward during this window
	assert.Equal(t, 5*time.Hour, iv.End.Sub(iv.Start))

	flat := OffpeakWindow{Start: MustTimeOfDay(0, 30, 0), End: MustTimeOfDay(4, 30, 0)}
	assert.False(t, flat.Wraps())
	assert.Equal(t, 4*time.Hour, flat.On(day).End.Sub(flat.On(day).Start))
	assert.Equal(t, "00:30-04:30", flat.String())
}

func TestInterval(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	iv := Interval{Start: base, End: base.Add(time.Hour)}
	assert.True(t, iv.Contains(base))
	assert.False(t, iv.Contains(base.Add(time.Hour)))
	assert.True(t, iv.Overlaps(Interval{Start: base.Add(59 * time.Minute), End: base.Add(2 * time.Hour)}))
	assert.False(t, iv.Overlaps(Interval{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}))
	assert.False(t, Interval{Start: base, End: base}.Valid())
}

func TestSourceJSON(t *testing.T) {
	for _, s := range []Source{SourceSmartCharge, SourceBumpCharge, SourceUnknown} {
		b, err := json.Marshal(s)
		require.NoError(t, err)
		var got Source
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, s, got)
	}
	assert.True(t, SourceBumpCharge.Charging())
	assert.False(t, SourceUnknown.Charging())
}

func TestLooseValues(t *testing.T) {
	s, ok := AsString(" abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", s)
	s, _ = AsString(80.0)
	assert.Equal(t, "80", s)
	_, ok = AsString(nil)
	assert.False(t, ok)

	b, ok := AsBool("true")
	assert.True(t, ok && b)
	b, ok = AsBool(0.0)
	assert.True(t, ok)
	assert.False(t, b)
	_, ok = AsBool(2.0)
	assert.False(t, ok)

	n, ok := AsInt("80")
	assert.True(t, ok)
	assert.Equal(t, 80, n)
	_, ok = AsInt(80.5)
	assert.False(t, ok)
	assert.False(t, IntField("x").Ok())
}

func TestDecodeDevice(t *testing.T) {
	d, err := DecodeDevice(json.RawMessage(`{"id":"dev-1","device_type":"ELECTRIC_VEHICLES"}`))
	require.NoError(t, err)
	assert.Equal(t, "ELECTRIC_VEHICLES", d.DeviceType)

	_, err = DecodeDevice(json.RawMessage(`{"label":"no id"}`))
	assert.ErrorIs(t, err, ErrDeviceMalformed)
	assert.Contains(t, err.Error(), "missing id")

	_, err = DecodeDevice(json.RawMessage(`[1,2]`))
	assert.ErrorIs(t, err, ErrDeviceMalformed)
}

func TestDecodeDevice_WrongTypedFieldsDegrade(t *testing.T) {
	raw := `{
	  "id": 17, "label": 5, "provider": ["x"], "status": "ok", "preferences": "soon",
	  "dispatches": {"planned": [
	    {"start": "2024-06-04T11:30:00Z", "end": "2024-06-04T12:30:00Z", "type": "SMART", "meta": "x"},
	    "junk", null
	  ], "completed": {"not": "a list"}}
	}`
	d, err := DecodeDevice(json.RawMessage(raw))
	require.NoError(t, err)
	assert.Equal(t, "17", d.ID)
	assert.Equal(t, "5", d.Label)
	assert.Empty(t, d.Provider)
	assert.Equal(t, RawStatus{}, d.Status)
	assert.Equal(t, RawPreferences{}, d.Preferences)
	require.Len(t, d.Dispatches.Planned, 1)
	assert.Equal(t, RawDispatchMeta{}, d.Dispatches.Planned[0].Meta)
	assert.Equal(t, "SMART", d.Dispatches.Planned[0].Type)
	assert.Empty(t, d.Dispatches.Completed)
	assert.Equal(t, 3, d.Dispatches.Malformed)
}

func TestDecodeDevice_UpstreamSpellings(t *testing.T) {
	d, err := DecodeDevice(json.RawMessage(`{"id": "cp", "deviceType": "CHARGE_POINTS",
	  "chargePointMake": "Ohme", "chargePointModel": "Home Pro"}`))
	require.NoError(t, err)
	assert.Equal(t, "CHARGE_POINTS", d.DeviceType)
	assert.Equal(t, "Ohme", d.Make)
	assert.Equal(t, "Home Pro", d.Model)

	d, err = DecodeDevice(json.RawMessage(`{"id": "ev", "device_type": "EV", "deviceType": "BATTERIES", "vehicleMake": "Tesla"}`))
	require.NoError(t, err)
	assert.Equal(t, "EV", d.DeviceType, "snake_case wins")
	assert.Equal(t, "Tesla", d.Make)

	_, err = DecodeDevice(json.RawMessage(`null`))
	assert.ErrorIs(t, err, ErrDeviceMalformed)
}

func TestSnapshot_MalformedAccountDispatches(t *testing.T) {
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"account": {"id": 42, "dispatches": "nope", "preferences": 3}}`), &s))
	assert.Equal(t, "42", s.Account.ID)
	assert.Equal(t, 1, s.Account.Dispatches.Malformed)
}
