/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads the controller configuration used by the command line
// tools.
//
// Values are read, in increasing precedence, from Default, a YAML file, a
// .env file and PERSISTENCE_* environment variables:
//
//	model: Notes
//	directory: /var/lib/notes
//	cloudContainer: notes-table
//	mergePolicy: merge-by-property
//	stores:
//	  - kind: local
//	    configuration: Local
//	  - kind: cloud-private
//	    configuration: Cloud
//	logging:
//	  level: debug
//	dynamodb:
//	  region: eu-central-1
//
// Store lists only come from the file.
package config
