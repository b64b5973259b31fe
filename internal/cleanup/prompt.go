package cleanup

const systemPrompt = "You are an expert diagram interpreter. Analyze the messy hand-drawn diagram in the image " +
	"and convert it into clean, structured JSON suitable for programmatic rendering. " +
	"All coordinates (x, y, width, height, radius, x1, y1, x2, y2) MUST be normalized between 0 and 1000, " +
	"matching the virtual canvas size. Infer standard shapes (rectangle, circle, line) and short text labels. " +
	"Give each major element a distinct, bright hex color. " +
	"Respond ONLY with the JSON, without explanatory text or markdown formatting."

const schemaDescription = `[
    {
        "type": "rectangle" | "circle" | "line" | "text",
        "color": "Hex color code for the element (e.g., #1D4ED8).",
        "details": {
            "x": "X position (center for circle/text, top-left for rectangle, 0-1000).",
            "y": "Y position (center for circle/text, top-left for rectangle, 0-1000).",
            "width": "Width for rectangle (0-1000).",
            "height": "Height for rectangle (0-1000).",
            "radius": "Radius for circle (0-1000).",
            "x1": "Start X for line (0-1000).",
            "y1": "Start Y for line (0-1000).",
            "x2": "End X for line (0-1000).",
            "y2": "End Y for line (0-1000).",
            "text": "The text content (only for type 'text')."
        }
    }
]`

const userPrompt = "Clean up this diagram into a single JSON array that strictly follows this schema. " +
	"Only output the JSON. Schema:\n" + schemaDescription
