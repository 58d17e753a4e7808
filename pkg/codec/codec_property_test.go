package codec

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestStatusRoundTrip_Property(t *testing.T) {
	s := loadTestSchema(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode inverts encode for plain signals", prop.ForAll(
		func(k1 bool, counter uint16, rawTemp int8) bool {
			k1Val := int64(0)
			if k1 {
				k1Val = 1
			}
			temp := float64(rawTemp)*0.5 - 10

			data, err := s.Encode(0x300, map[string]any{
				"K1State":     k1Val,
				"Counter":     counter,
				"Temperature": temp,
			})
			if err != nil || len(data) != 4 {
				return false
			}
			got, err := s.Decode(0x300, data)
			if err != nil {
				return false
			}
			return got["K1State"] == k1Val &&
				got["Counter"] == int64(counter) &&
				got["Temperature"] == temp
		},
		gen.Bool(),
		gen.UInt16(),
		gen.Int8(),
	))

	properties.TestingRun(t)
}

func TestMultiplexedRoundTrip_Property(t *testing.T) {
	s := loadTestSchema(t)

	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("selected mux group decodes, others stay hidden", prop.ForAll(
		func(mv int64, channel int64, enable bool) bool {
			en := int64(0)
			if enable {
				en = 1
			}
			data, err := s.Encode(0x200, map[string]any{
				"CmdType":    1,
				"Voltage_mV": mv,
				"MuxEnable":  en,
				"MuxChannel": channel,
			})
			if err != nil {
				return false
			}
			got, err := s.Decode(0x200, data)
			if err != nil {
				return false
			}
			_, hasRelay := got["RelayK1"]
			return !hasRelay &&
				got["CmdType"] == int64(1) &&
				got["Voltage_mV"] == mv &&
				got["MuxEnable"] == en &&
				got["MuxChannel"] == channel
		},
		gen.Int64Range(0, 5000),
		gen.Int64Range(0, 15),
		gen.Bool(),
	))

	properties.Property("voltage above the declared max is rejected", prop.ForAll(
		func(mv int64) bool {
			_, err := s.Encode(0x200, map[string]any{"CmdType": 1, "Voltage_mV": mv})
			return err != nil
		},
		gen.Int64Range(5001, 65535),
	))

	properties.TestingRun(t)
}
