// Package template loads per-style workflow templates written in CUE and
// resolves them into an order's workflow node snapshot.
//
// A template file declares one pipeline per style number:
//
//	styles: "ST-001": nodes: [
//		{name: "裁剪", unitPrice: 0.5},
//		{name: "车缝", unitPrice: 3.2, processes: ["上领", "上袖"]},
//		{name: "后整", parentStage: "包装", processes: ["剪线", "整烫", "终检"]},
//	]
//
// The file is unified with an embedded schema before decoding, so type
// errors carry CUE source positions. A node's processes list is its
// expected sub-process count for aggregation.
package template
