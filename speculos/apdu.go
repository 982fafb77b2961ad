package speculos

import (
	"encoding/hex"
	"fmt"

	json "github.com/bytedance/sonic"
)

// The /apdu endpoint exchanges opaque byte buffers wrapped in a single-field
// JSON object whose value is the lower-case hex text of the bytes.

type apduRequest struct {
	Data string `json:"data"`
}

type apduResponse struct {
	Data *string `json:"data"`
}

func encodeAPDU(data []byte) ([]byte, error) {
	body, err := json.Marshal(apduRequest{Data: hex.EncodeToString(data)})
	if err != nil {
		return nil, fmt.Errorf("%w: encode apdu: %w", ErrTransport, err)
	}
	return body, nil
}

func decodeAPDU(body []byte) ([]byte, error) {
	var resp apduResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode apdu response: %w", ErrTransport, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: apdu response missing data field", ErrTransport)
	}
	data, err := hex.DecodeString(*resp.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: apdu response is not valid hex: %w", ErrTransport, err)
	}
	return data, nil
}
