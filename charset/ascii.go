// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package charset

var asciiTable [256]byte

// Closest ASCII look-alikes for the Windows-1252 / Latin-1 upper half.
// Anything not listed becomes a space.
var latin1Lookalikes = map[byte]byte{
	128: 'E', 130: ',', 131: 'F', 132: '"', 133: '.', 134: '+', 135: '+',
	136: '^', 137: 'm', 138: 'S', 139: '<', 140: 'E', 142: 'Z', 145: '`',
	146: '\'', 147: '"', 148: '"', 149: '.', 150: '-', 151: '-', 152: '~',
	154: 's', 155: '>', 156: 'e', 158: 'z', 159: 'Y', 171: '<', 180: '\'',
	181: 'u', 187: '>', 191: '?',
	192: 'A', 193: 'A', 194: 'A', 195: 'A', 196: 'A', 197: 'A', 198: 'E',
	199: 'C', 200: 'E', 201: 'E', 202: 'E', 203: 'E', 204: 'I', 205: 'I',
	206: 'I', 207: 'I', 208: 'D', 209: 'N', 210: 'O', 211: 'O', 212: 'O',
	213: 'O', 214: 'O', 215: 'x', 216: 'O', 217: 'U', 218: 'U', 219: 'U',
	220: 'U', 221: 'Y', 222: 'I', 223: 's',
	224: 'a', 225: 'a', 226: 'a', 227: 'a', 228: 'a', 229: 'a', 230: 'e',
	231: 'c', 232: 'e', 233: 'e', 234: 'e', 235: 'e', 236: 'i', 237: 'i',
	238: 'i', 239: 'i', 240: 'd', 241: 'n', 242: 'o', 243: 'o', 244: 'o',
	245: 'o', 246: 'o', 247: '-', 248: '0', 249: 'u', 250: 'u', 251: 'u',
	252: 'u', 253: 'y', 254: 't', 255: 'y',
}

func init() {
	for i := range asciiTable {
		c := byte(i)
		switch {
		case c > 31 && c < 127:
			asciiTable[i] = c
		default:
			if r, ok := latin1Lookalikes[c]; ok {
				asciiTable[i] = r
			} else {
				asciiTable[i] = ' '
			}
		}
	}
}
