/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invitation

const requestsAttach = "requests~attach"

// RequestThreadIDs lists the thread ids of the requests attached to an OOB invitation,
// in attachment order.
func RequestThreadIDs(doc Document) []string {
	attachments, _ := doc[requestsAttach].([]interface{})

	var out []string
	for _, a := range attachments {
		att, ok := a.(map[string]interface{})
		if !ok {
			continue
		}

		if id := attachedThreadID(att); id != "" {
			out = append(out, id)
		}
	}

	return out
}

// HasRequests reports whether the invitation carries attached requests.
func HasRequests(doc Document) bool {
	attachments, _ := doc[requestsAttach].([]interface{})
	return len(attachments) > 0
}

func attachedThreadID(att map[string]interface{}) string {
	if data, ok := att["data"].(map[string]interface{}); ok {
		if msg, ok := data["json"].(map[string]interface{}); ok {
			if thread, ok := msg["~thread"].(map[string]interface{}); ok {
				if thid, _ := thread["thid"].(string); thid != "" {
					return thid
				}
			}

			if id, _ := msg["@id"].(string); id != "" {
				return id
			}
		}
	}

	id, _ := att["@id"].(string)
	return id
}
