package fluxion

import (
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
)

func registerSNMPBuiltins(r *Registry) {
	r.Override("snmp_get", func(args []any, kwargs map[string]any) (any, error) {
		return snmpGet(args, kwargs)
	})
}

// snmpGet fetches one or more OIDs from an SNMP v2c agent. Transport and
// agent failures are terminal, matching the HTTP probes.
func snmpGet(args []any, kwargs map[string]any) (any, error) {
	opts, err := probeOptionsKeyed("snmp_get", "target", args, kwargs)
	if err != nil {
		return nil, err
	}
	target, err := optString(opts, "target", "")
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, fmt.Errorf("snmp_get: option \"target\" is required")
	}
	community, err := optString(opts, "community", "public")
	if err != nil {
		return nil, err
	}
	port, err := optNumber(opts, "port", 161)
	if err != nil {
		return nil, err
	}
	timeoutSec, err := optNumber(opts, "timeout", 5)
	if err != nil {
		return nil, err
	}

	var oids []string
	switch v, _ := opts.Get("oid"); ov := v.(type) {
	case string:
		oids = []string{ov}
	case []any:
		for _, el := range ov {
			s, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("snmp_get: oid list must contain strings, got %s", typeName(el))
			}
			oids = append(oids, s)
		}
	case nil:
		return nil, fmt.Errorf("snmp_get: option \"oid\" is required")
	default:
		return nil, fmt.Errorf("snmp_get: option \"oid\" must be a string or list, got %s", typeName(v))
	}

	client := &gosnmp.GoSNMP{
		Target:    target,
		Port:      uint16(port),
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   time.Duration(timeoutSec * float64(time.Second)),
		Retries:   1,
	}
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("snmp_get %s: %w", target, err)
	}
	defer client.Conn.Close()

	start := time.Now()
	pkt, err := client.Get(oids)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("snmp_get %s: %w", target, err)
	}

	varbinds := make([]any, 0, len(pkt.Variables))
	for _, pdu := range pkt.Variables {
		vb := NewMap()
		vb.Set("oid", pdu.Name)
		vb.Set("type", pdu.Type.String())
		vb.Set("value", snmpValue(pdu))
		varbinds = append(varbinds, vb)
	}

	result := NewMap()
	result.Set("ok", pkt.Error == gosnmp.NoError)
	result.Set("target", target)
	result.Set("varbinds", varbinds)
	result.Set("elapsed_ms", int(elapsed.Milliseconds()))
	return result, nil
}

func snmpValue(pdu gosnmp.SnmpPDU) any {
	switch v := pdu.Value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	case int:
		return v
	case uint:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case int64:
		return int(v)
	case nil:
		return nil
	}
	return fmt.Sprintf("%v", pdu.Value)
}
