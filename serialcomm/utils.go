// serialcomm/utils.go
package serialcomm

import (
	"fmt"
	"io"

	"github.com/sigurn/crc16"
)

var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// Checksum is CRC16/MODBUS over data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, modbusTable)
}

// SendCommand writes a firmware command in a single write.
func SendCommand(w io.Writer, cmd string) error {
	if _, err := w.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("send command %q: %w", cmd, err)
	}
	return nil
}
