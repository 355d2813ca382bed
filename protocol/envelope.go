package protocol

import (
	"fmt"
	"reflect"
	"sync"
)

// EncodeValue serializes v through ser, wrapping it in a synthesized
// single-field envelope when ser.NeedsEnvelope reports true (spec
// §4.4(c)). The envelope's field carries v's own concrete type --
// go-xdr's reflection switches on a struct field's static Kind and has
// no case for reflect.Interface, so a field declared as `any` fails to
// encode even when it holds a supported concrete value underneath.
// Synthesizing the field type per call with reflect.StructOf gives the
// codec a genuinely concrete type to reflect over, the same as every
// hand-written request/response struct the codec already marshals.
func EncodeValue(ser Serializer, v any) ([]byte, error) {
	if !ser.NeedsEnvelope() {
		return ser.Serialize(v)
	}

	val := reflect.ValueOf(v)
	if !val.IsValid() {
		return nil, fmt.Errorf("protocol: cannot encode untyped nil value")
	}

	env := reflect.New(envelopeType(val.Type())).Elem()
	env.Field(0).Set(val)
	return ser.Serialize(env.Addr().Interface())
}

// DecodeValue decodes data through ser into a value of targetType,
// unwrapping the envelope EncodeValue synthesized when the serializer
// needs one.
func DecodeValue(ser Serializer, data []byte, targetType reflect.Type) (reflect.Value, error) {
	if !ser.NeedsEnvelope() {
		ptr := reflect.New(targetType)
		if err := ser.Deserialize(data, ptr.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}

	envPtr := reflect.New(envelopeType(targetType))
	if err := ser.Deserialize(data, envPtr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return envPtr.Elem().Field(0), nil
}

var envelopeTypeCache sync.Map // map[reflect.Type]reflect.Type

// envelopeType returns a single-field struct type {V fieldType} used to
// anchor a bare value for codecs that cannot encode one at the top
// level, caching by fieldType since reflect.StructOf is not cheap.
func envelopeType(fieldType reflect.Type) reflect.Type {
	if cached, ok := envelopeTypeCache.Load(fieldType); ok {
		return cached.(reflect.Type)
	}

	et := reflect.StructOf([]reflect.StructField{
		{Name: "V", Type: fieldType, Tag: `xdr:"v"`},
	})
	actual, _ := envelopeTypeCache.LoadOrStore(fieldType, et)
	return actual.(reflect.Type)
}
