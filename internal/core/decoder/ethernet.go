// Package decoder implements protocol decoding.
package decoder

const ethernetHeaderLen = 14

// decodeEthernet skips the fixed Ethernet header and returns the bytes after
// it. The EtherType is not inspected and VLAN tags are not unwrapped.
func decodeEthernet(data []byte) ([]byte, error) {
	if len(data) < ethernetHeaderLen {
		return nil, errShortEthernet
	}
	return data[ethernetHeaderLen:], nil
}
