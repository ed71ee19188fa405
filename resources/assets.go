/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package resources

import (
	_ "embed"
)

var (
	//go:embed sample_report.json
	SampleReport []byte

	//go:embed config.example.yaml
	ConfigExample []byte
)
