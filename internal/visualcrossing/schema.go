package visualcrossing

import "github.com/santhosh-tekuri/jsonschema/v5"

// timelineSchemaJSON covers only the fields the forecast screen reads; anything
// else in the upstream payload is ignored.
const timelineSchemaJSON = `{
  "type": "object",
  "required": ["currentConditions", "days"],
  "properties": {
    "tzoffset": {"type": "number"},
    "currentConditions": {
      "type": "object",
      "required": ["temp", "humidity", "pressure", "conditions", "icon", "sunrise", "sunset", "datetimeEpoch"],
      "properties": {
        "temp": {"type": "number"},
        "humidity": {"type": ["number", "null"]},
        "pressure": {"type": ["number", "null"]},
        "conditions": {"type": "string"},
        "icon": {"type": "string"},
        "sunrise": {"type": "string", "pattern": "^[0-9]{1,2}:[0-9]{2}:[0-9]{2}$"},
        "sunset": {"type": "string", "pattern": "^[0-9]{1,2}:[0-9]{2}:[0-9]{2}$"},
        "datetimeEpoch": {"type": "integer"}
      }
    },
    "days": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["datetime", "temp", "icon"],
        "properties": {
          "datetime": {"type": "string"},
          "temp": {"type": "number"},
          "icon": {"type": "string"}
        }
      }
    }
  }
}`

var timelineSchema = jsonschema.MustCompileString("timeline.json", timelineSchemaJSON)
