package mongo

import (
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// newRegistry returns the default registry with uint64 stored as the int64
// bit pattern. The stock codec refuses values above MaxInt64, and saturated
// fees sit at MaxUint64.
func newRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterKindEncoder(reflect.Uint64, bsoncodec.ValueEncoderFunc(encodeUint64))
	reg.RegisterKindDecoder(reflect.Uint64, bsoncodec.ValueDecoderFunc(decodeUint64))
	return reg
}

func encodeUint64(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if val.Kind() != reflect.Uint64 {
		return bsoncodec.ValueEncoderError{Name: "encodeUint64", Kinds: []reflect.Kind{reflect.Uint64}, Received: val}
	}
	return vw.WriteInt64(int64(val.Uint()))
}

func decodeUint64(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Kind() != reflect.Uint64 {
		return bsoncodec.ValueDecoderError{Name: "decodeUint64", Kinds: []reflect.Kind{reflect.Uint64}, Received: val}
	}
	switch vr.Type() {
	case bsontype.Int64:
		i, err := vr.ReadInt64()
		if err != nil {
			return err
		}
		val.SetUint(uint64(i))
	case bsontype.Int32:
		i, err := vr.ReadInt32()
		if err != nil {
			return err
		}
		val.SetUint(uint64(uint32(i)))
	default:
		return fmt.Errorf("cannot decode %v into uint64", vr.Type())
	}
	return nil
}
